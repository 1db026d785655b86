package common

import "github.com/gagliardetto/solana-go"

// pump.fun 程序及其固定账户，进程内只读
var (
	PumpProgramID      = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpGlobal         = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	PumpFeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	PumpEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	TokenProgramID           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID          = solana.SystemProgramID
	RentSysvarID             = solana.SysVarRentPubkey
	ComputeBudgetProgramID   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
)

// 指令数据前 8 字节的操作标识
var (
	BuyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

const BondingCurveSeed = "bonding-curve"

const (
	LamportsPerSol = 1_000_000_000
	// 买入时在投入金额之上额外预留的手续费百分比
	FeeBufferPct = 3

	DefaultInvestment = "0.001"
	DefaultUnitLimit  = 80_000
	DefaultUnitPrice  = 100_000
)

// Discriminator 返回交易类型对应的指令标识
func Discriminator(action TradeAction) ([8]byte, bool) {
	switch action {
	case BUY:
		return BuyDiscriminator, true
	case SELL:
		return SellDiscriminator, true
	default:
		return [8]byte{}, false
	}
}

// ActionFromDiscriminator 根据指令数据前缀识别交易类型
func ActionFromDiscriminator(prefix [8]byte) (TradeAction, bool) {
	switch prefix {
	case BuyDiscriminator:
		return BUY, true
	case SellDiscriminator:
		return SELL, true
	default:
		return "", false
	}
}
