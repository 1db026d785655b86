package instruction

import (
	"pump_buy/internal/common"
	"pump_buy/internal/pda"

	"github.com/gagliardetto/solana-go"
)

// createIdempotent 关联代币账户程序的 CreateIdempotent 指令编号，账户已存在时不报错
const createIdempotent byte = 1

// NewCreateIdempotentATA 为 owner 创建 mint 的关联代币账户，已存在时为空操作
func NewCreateIdempotentATA(payer, owner, mint solana.PublicKey) (*solana.GenericInstruction, error) {
	ata, err := pda.DeriveUserTokenAccount(owner, mint)
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(
		common.AssociatedTokenProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(common.SystemProgramID),
			solana.Meta(common.TokenProgramID),
		},
		[]byte{createIdempotent},
	), nil
}
