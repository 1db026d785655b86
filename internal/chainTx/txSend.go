package chainTx

import (
	"context"

	"pump_buy/internal/common"
	"pump_buy/internal/instruction"
	"pump_buy/internal/pda"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxTransactionSize 单笔交易序列化后的上限 (IPv6 MTU 1280 - 48)
const MaxTransactionSize = 1232

var (
	ErrMessageCompile    = errors.New("交易消息编译失败")
	ErrEmptyCommitStatus = errors.New("网关未返回确认结果")
)

// Gateway 链上访问网关，可被多个并发买入共享
type Gateway interface {
	BlockhashSource
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*common.CommitStatus, error)
}

// Stage 一次买入在组装流程中的阶段，严格按顺序推进
type Stage int

const (
	StageInit Stage = iota
	StageBlockhashAcquired
	StageInstructionsBuilt
	StageMessageCompiled
	StageSigned
	StageSubmitted
	StageConfirmed
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageBlockhashAcquired:
		return "blockhash_acquired"
	case StageInstructionsBuilt:
		return "instructions_built"
	case StageMessageCompiled:
		return "message_compiled"
	case StageSigned:
		return "signed"
	case StageSubmitted:
		return "submitted"
	case StageConfirmed:
		return "confirmed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuyParams 一次买入所需的全部参数，Payer 只作为地址使用
type BuyParams struct {
	Payer        solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Amount       uint64
	MaxSolCost   uint64
	UnitLimit    uint32
	UnitPrice    uint64
}

// CommitResult 买入结果。失败时 Stage 为 StageFailed，FailedAt 为出错的阶段
type CommitResult struct {
	Signature          solana.Signature
	Slot               uint64
	ConfirmationStatus rpc.ConfirmationStatusType
	Stage              Stage
	FailedAt           Stage
}

type Assembler struct {
	gateway Gateway
	retry   RetryPolicy
}

type Option func(a *Assembler)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(a *Assembler) {
		a.retry = policy
	}
}

func NewAssembler(gateway Gateway, opts ...Option) *Assembler {
	a := &Assembler{
		gateway: gateway,
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewBuyParams 根据买入请求计算指令参数；未指定 bonding curve 时按 mint 推导
func NewBuyParams(req common.BuyRequest, payer solana.PublicKey) (BuyParams, error) {
	curve := req.BondingCurve
	if curve.IsZero() {
		derived, err := pda.DeriveBondingCurve(req.Mint)
		if err != nil {
			return BuyParams{}, err
		}
		curve = derived
	}

	maxSolCost, err := MaxSolCostWithFees(req.Investment)
	if err != nil {
		return BuyParams{}, err
	}

	return BuyParams{
		Payer:        payer,
		Mint:         req.Mint,
		BondingCurve: curve,
		// 不计算滑点，amount 固定为 0，只以 max_sol_cost 作为花费上限
		Amount:     0,
		MaxSolCost: maxSolCost,
		UnitLimit:  req.UnitLimit,
		UnitPrice:  req.UnitPrice,
	}, nil
}

// BuildInstructions 按顺序返回 [设置 CU 上限, 设置 CU 价格, 创建关联账户, buy]。
// compute budget 指令必须位于交易指令之前。
func BuildInstructions(params BuyParams) ([]solana.Instruction, error) {
	curveTokenAccount, err := pda.DeriveCurveTokenAccount(params.BondingCurve, params.Mint)
	if err != nil {
		return nil, err
	}
	userTokenAccount, err := pda.DeriveUserTokenAccount(params.Payer, params.Mint)
	if err != nil {
		return nil, err
	}

	createATA, err := instruction.NewCreateIdempotentATA(params.Payer, params.Payer, params.Mint)
	if err != nil {
		return nil, err
	}

	buy, err := instruction.EncodeBuy(params.Amount, params.MaxSolCost, instruction.TradeAccounts{
		Mint:              params.Mint,
		BondingCurve:      params.BondingCurve,
		CurveTokenAccount: curveTokenAccount,
		UserTokenAccount:  userTokenAccount,
		User:              params.Payer,
	})
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(params.UnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(params.UnitPrice).Build(),
		createATA,
		buy,
	}, nil
}

// CompileMessage 以 payer 为手续费账户编译交易消息，超出大小上限时返回 ErrMessageCompile
func CompileMessage(payer solana.PublicKey, ixs []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, errors.Wrapf(ErrMessageCompile, "%v", err)
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(ErrMessageCompile, "%v", err)
	}
	// 签名区: 1 字节长度前缀 + 每个签名 64 字节
	size := 1 + int(tx.Message.Header.NumRequiredSignatures)*64 + len(message)
	if size > MaxTransactionSize {
		return nil, errors.Wrapf(ErrMessageCompile, "交易大小 %d 超出上限 %d", size, MaxTransactionSize)
	}
	return tx, nil
}

// SignTransaction 用 signer 对消息签名，signer 必须是唯一需要签名的手续费账户
func SignTransaction(tx *solana.Transaction, signer Signer) error {
	if signer == nil {
		return &common.SigningError{Err: errors.New("签名者不可用")}
	}
	if tx.Message.Header.NumRequiredSignatures != 1 {
		return &common.SigningError{Err: errors.Errorf("需要 %d 个签名，仅支持单一签名者", tx.Message.Header.NumRequiredSignatures)}
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(signer.PublicKey()) {
		return &common.SigningError{Err: errors.New("签名者与手续费账户不一致")}
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return &common.SigningError{Err: errors.Wrap(err, "序列化消息失败")}
	}
	signature, err := signer.Sign(message)
	if err != nil {
		return &common.SigningError{Err: err}
	}
	tx.Signatures = []solana.Signature{signature}
	return nil
}

// BuildAndSubmit 获取区块哈希、组装并签名交易后提交，等待确认。
// 提交前 ctx 被取消不会产生任何副作用；提交后被拒绝不会自动重发。
func (a *Assembler) BuildAndSubmit(ctx context.Context, signer Signer, params BuyParams) (*CommitResult, error) {
	result := &CommitResult{Stage: StageInit}
	logger := common.Log.WithFields(logrus.Fields{
		"mint":         params.Mint.String(),
		"bondingCurve": params.BondingCurve.String(),
		"payer":        params.Payer.String(),
	})

	fail := func(err error) (*CommitResult, error) {
		result.FailedAt = result.Stage
		result.Stage = StageFailed
		logger.WithField("stage", result.FailedAt.String()).Errorf("买入失败: %v", err)
		return result, errors.Wrapf(err, "阶段 %s", result.FailedAt)
	}
	advance := func(next Stage) {
		result.Stage = next
		logger.WithField("stage", next.String()).Debug("阶段推进")
	}

	blockhash, err := FetchRecentBlockhash(ctx, a.gateway, a.retry)
	if err != nil {
		return fail(err)
	}
	advance(StageBlockhashAcquired)

	ixs, err := BuildInstructions(params)
	if err != nil {
		return fail(err)
	}
	advance(StageInstructionsBuilt)

	tx, err := CompileMessage(params.Payer, ixs, blockhash)
	if err != nil {
		return fail(err)
	}
	advance(StageMessageCompiled)

	if err := SignTransaction(tx, signer); err != nil {
		return fail(err)
	}
	result.Signature = tx.Signatures[0]
	advance(StageSigned)

	// 提交之后的取消不能假设链上已回滚，因此只在这里检查
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	logger.WithFields(logrus.Fields{
		"signature":  result.Signature.String(),
		"maxSolCost": params.MaxSolCost,
		"unitLimit":  params.UnitLimit,
		"unitPrice":  params.UnitPrice,
	}).Info("提交买入交易")
	advance(StageSubmitted)

	status, err := a.gateway.SendAndConfirm(ctx, tx)
	if err != nil {
		return fail(err)
	}
	if status == nil {
		return fail(errors.Wrapf(ErrEmptyCommitStatus, "签名 %s", result.Signature))
	}

	result.Slot = status.Slot
	result.ConfirmationStatus = status.ConfirmationStatus
	if !status.Signature.IsZero() {
		result.Signature = status.Signature
	}
	advance(StageConfirmed)

	logger.WithFields(logrus.Fields{
		"signature": result.Signature.String(),
		"slot":      result.Slot,
	}).Infof("交易已确认: https://solscan.io/tx/%s", result.Signature)
	return result, nil
}

// BuildAndSubmit 使用默认重试策略完成一次买入
func BuildAndSubmit(ctx context.Context, gateway Gateway, signer Signer, params BuyParams) (*CommitResult, error) {
	return NewAssembler(gateway).BuildAndSubmit(ctx, signer, params)
}
