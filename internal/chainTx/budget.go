package chainTx

import (
	"math"
	"math/big"

	"pump_buy/internal/common"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	lamportsPerSol = decimal.NewFromInt(common.LamportsPerSol)
	feeBuffer      = decimal.New(common.FeeBufferPct, -2)
	maxLamports    = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// SolToLamports 将 SOL 金额换算为 lamports，不足 1 lamport 的部分舍去
func SolToLamports(sol decimal.Decimal) (uint64, error) {
	return toLamports(sol.Mul(lamportsPerSol))
}

// MaxSolCostWithFees 在投入金额之上预留 FeeBufferPct 的手续费，作为 buy 指令的 max_sol_cost
func MaxSolCostWithFees(investment decimal.Decimal) (uint64, error) {
	lamports := investment.Mul(lamportsPerSol)
	return toLamports(lamports.Add(lamports.Mul(feeBuffer)))
}

func toLamports(v decimal.Decimal) (uint64, error) {
	if v.IsNegative() {
		return 0, errors.Errorf("金额不能为负数: %s", v)
	}
	v = v.Floor()
	if v.GreaterThan(maxLamports) {
		return 0, errors.Errorf("金额超出 u64 范围: %s", v)
	}
	return v.BigInt().Uint64(), nil
}
