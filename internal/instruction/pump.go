package instruction

import (
	"bytes"
	"encoding/binary"

	"pump_buy/internal/common"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// PayloadSize 标识(8) + 两个 u64
const PayloadSize = 24

// AccountCount buy/sell 指令固定的账户数量
const AccountCount = 12

type BuyPayload struct {
	Amount     uint64
	MaxSolCost uint64
}

func (p BuyPayload) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeTradePayload(encoder, common.BuyDiscriminator, p.Amount, p.MaxSolCost)
}

type SellPayload struct {
	Amount       uint64
	MinSolOutput uint64
}

func (p SellPayload) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeTradePayload(encoder, common.SellDiscriminator, p.Amount, p.MinSolOutput)
}

// TradeAccounts 随交易目标变化的账户，其余账户来自常量表
type TradeAccounts struct {
	Mint              solana.PublicKey
	BondingCurve      solana.PublicKey
	CurveTokenAccount solana.PublicKey
	UserTokenAccount  solana.PublicKey
	User              solana.PublicKey
}

// EncodeBuy 构造 pump.fun buy 指令
//
// 账户顺序:
//
//	0 global            只读
//	1 fee recipient     可写
//	2 mint              只读
//	3 bonding curve     可写
//	4 curve 代币账户     可写
//	5 用户代币账户       可写
//	6 用户              可写, 签名
//	7 system program    只读
//	8 token program     只读
//	9 rent sysvar       只读
//	10 event authority  只读
//	11 pump program     只读
func EncodeBuy(amount uint64, maxSolCost uint64, accts TradeAccounts) (*solana.GenericInstruction, error) {
	data, err := encodePayload(BuyPayload{Amount: amount, MaxSolCost: maxSolCost})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(common.PumpProgramID, tradeAccountMetas(accts, common.BUY), data), nil
}

// EncodeSell 构造 pump.fun sell 指令
//
// 与 buy 的区别在 8、9 两个位置: 8 为 associated token program，
// 9 为 token program，sell 不需要 rent sysvar
func EncodeSell(amount uint64, minSolOutput uint64, accts TradeAccounts) (*solana.GenericInstruction, error) {
	data, err := encodePayload(SellPayload{Amount: amount, MinSolOutput: minSolOutput})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(common.PumpProgramID, tradeAccountMetas(accts, common.SELL), data), nil
}

// DecodeTradePayload 解析 buy/sell 指令数据，返回交易类型和两个数值字段
func DecodeTradePayload(data []byte) (common.TradeAction, uint64, uint64, error) {
	if len(data) != PayloadSize {
		return "", 0, 0, errors.Errorf("指令数据长度应为 %d 字节，实际为 %d", PayloadSize, len(data))
	}

	decoder := bin.NewBinDecoder(data)
	prefix, err := decoder.ReadNBytes(8)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "读取指令标识失败")
	}

	var discriminator [8]byte
	copy(discriminator[:], prefix)
	action, ok := common.ActionFromDiscriminator(discriminator)
	if !ok {
		return "", 0, 0, errors.Errorf("未知的指令标识 %x", discriminator)
	}

	first, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "读取 amount 失败")
	}
	second, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "读取第二个字段失败")
	}
	return action, first, second, nil
}

func writeTradePayload(encoder *bin.Encoder, discriminator [8]byte, first uint64, second uint64) error {
	if err := encoder.WriteBytes(discriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(first, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(second, binary.LittleEndian)
}

func encodePayload(payload bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := payload.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, errors.Wrap(err, "编码指令数据失败")
	}
	if buf.Len() != PayloadSize {
		return nil, errors.Errorf("编码指令数据失败: 长度 %d", buf.Len())
	}
	return buf.Bytes(), nil
}

func tradeAccountMetas(accts TradeAccounts, action common.TradeAction) solana.AccountMetaSlice {
	slot8, slot9 := common.TokenProgramID, common.RentSysvarID
	if action == common.SELL {
		slot8, slot9 = common.AssociatedTokenProgramID, common.TokenProgramID
	}

	return solana.AccountMetaSlice{
		solana.Meta(common.PumpGlobal),
		solana.Meta(common.PumpFeeRecipient).WRITE(),
		solana.Meta(accts.Mint),
		solana.Meta(accts.BondingCurve).WRITE(),
		solana.Meta(accts.CurveTokenAccount).WRITE(),
		solana.Meta(accts.UserTokenAccount).WRITE(),
		solana.Meta(accts.User).WRITE().SIGNER(),
		solana.Meta(common.SystemProgramID),
		solana.Meta(slot8),
		solana.Meta(slot9),
		solana.Meta(common.PumpEventAuthority),
		solana.Meta(common.PumpProgramID),
	}
}
