package common

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// BuyRequest 一次买入的输入参数，由启动配置构造
type BuyRequest struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey // 为零值时按 mint 推导
	Investment   decimal.Decimal  // 以 SOL 计
	UnitLimit    uint32
	UnitPrice    uint64 // micro-lamports / CU
}

// CommitStatus 网关返回的上链确认结果
type CommitStatus struct {
	Signature          solana.Signature
	Slot               uint64
	ConfirmationStatus rpc.ConfirmationStatusType
}
