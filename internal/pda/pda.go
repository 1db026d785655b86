package pda

import (
	"pump_buy/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

var createProgramAddress = solana.CreateProgramAddress

// DeriveProgramAddress 从 bump=255 开始向下尝试，返回第一个不在曲线上的地址
func DeriveProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if err := validateSeeds(seeds); err != nil {
		return solana.PublicKey{}, 0, err
	}

	candidate := make([][]byte, len(seeds)+1)
	copy(candidate, seeds)

	for bump := 255; bump >= 0; bump-- {
		candidate[len(seeds)] = []byte{uint8(bump)}
		address, err := createProgramAddress(candidate, programID)
		if err == nil {
			return address, uint8(bump), nil
		}
	}
	return solana.PublicKey{}, 0, errors.Wrapf(common.ErrDerivationExhausted, "program %s", programID)
}

// validateSeeds bump 占用一个种子位置
func validateSeeds(seeds [][]byte) error {
	if len(seeds)+1 > solana.MaxSeeds {
		return errors.Wrapf(common.ErrInvalidSeeds, "种子数量 %d 超过上限 %d", len(seeds), solana.MaxSeeds-1)
	}
	for i, seed := range seeds {
		if len(seed) > solana.MaxSeedLength {
			return errors.Wrapf(common.ErrInvalidSeeds, "第 %d 个种子长度 %d 超过 %d", i, len(seed), solana.MaxSeedLength)
		}
	}
	return nil
}

// DeriveAssociatedAccount 计算 owner 持有 mint 的关联代币账户
func DeriveAssociatedAccount(owner, mint, tokenProgram, associatedProgram solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := DeriveProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, associatedProgram)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "关联代币账户")
	}
	return address, nil
}

func DeriveUserTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	return DeriveAssociatedAccount(owner, mint, common.TokenProgramID, common.AssociatedTokenProgramID)
}

// DeriveCurveTokenAccount bonding curve 持有代币的关联账户
func DeriveCurveTokenAccount(curve, mint solana.PublicKey) (solana.PublicKey, error) {
	return DeriveAssociatedAccount(curve, mint, common.TokenProgramID, common.AssociatedTokenProgramID)
}

func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := DeriveProgramAddress([][]byte{
		[]byte(common.BondingCurveSeed),
		mint[:],
	}, common.PumpProgramID)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "bonding curve")
	}
	return address, nil
}
