package solana

import (
	"context"
	"fmt"
	"time"

	"pump_buy/internal/common"
	"pump_buy/internal/ws"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultPollInterval = 500 * time.Millisecond

var ErrBlockhashExpired = errors.New("区块哈希已过期")

// Client 包装Solana客户端功能，并发安全，可在多个买入之间共享
type Client struct {
	rpcClient    *rpc.Client
	commitment   rpc.CommitmentType
	wsURL        string
	pollInterval time.Duration
	limiter      *rate.Limiter
}

type Option func(c *Client)

// WithCommitment 获取区块哈希、预检和确认使用的承诺级别，默认 confirmed
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) {
		c.commitment = commitment
	}
}

// WithWebsocket 使用 signatureSubscribe 等待确认，未设置时轮询签名状态
func WithWebsocket(url string) Option {
	return func(c *Client) {
		c.wsURL = url
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithRateLimit 限制每秒 RPC 请求数，rps <= 0 表示不限制
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New 创建新的Solana客户端
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		rpcClient:    rpc.New(endpoint),
		commitment:   rpc.CommitmentConfirmed,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close 关闭客户端连接
func (c *Client) Close() error {
	return c.rpcClient.Close()
}

// LatestBlockhash 获取最新的区块哈希
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	out, err := c.rpcClient.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, errors.Wrap(err, "获取最新区块哈希失败")
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, errors.New("获取最新区块哈希失败: 返回为空")
	}
	return out.Value.Blockhash, nil
}

// SendAndConfirm 发送已签名交易并等待达到承诺级别。
// 节点拒绝、链上执行失败或区块哈希过期仍未上链时返回 SubmissionRejectedError。
func (c *Client) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*common.CommitStatus, error) {
	if len(tx.Signatures) == 0 {
		return nil, errors.New("交易未签名")
	}
	sig := tx.Signatures[0]
	logger := common.Log.WithField("signature", sig.String())

	// 先订阅再发送，避免错过推送
	var sub *ws.Subscription
	if c.wsURL != "" {
		s, err := ws.SubscribeSignature(ctx, c.wsURL, sig, c.commitment)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warnf("订阅签名失败，改为轮询: %v", err)
		} else {
			sub = s
			defer sub.Close()
		}
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	// 节点在区块哈希有效期内自动重发同一笔已签名交易
	if _, err := c.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	}); err != nil {
		return nil, classifySendError(err)
	}
	logger.WithFields(logrus.Fields{
		"commitment": c.commitment,
		"websocket":  sub != nil,
	}).Debug("交易已发送，等待确认")

	blockhash := tx.Message.RecentBlockhash
	if sub != nil {
		waitCtx, cancel := context.WithCancel(ctx)
		expired := make(chan struct{})
		go c.watchBlockhash(waitCtx, blockhash, func() {
			close(expired)
			cancel()
		})
		n, err := sub.Wait(waitCtx)
		cancel()
		if err == nil {
			if n.Err != nil {
				return nil, &common.SubmissionRejectedError{Detail: fmt.Sprintf("链上执行失败: %v", n.Err)}
			}
			return &common.CommitStatus{
				Signature:          sig,
				Slot:               n.Slot,
				ConfirmationStatus: confirmationOf(c.commitment),
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-expired:
			// 最后查询一次状态再判定过期
			logger.Debug("区块哈希已过期，查询最终状态")
		default:
			logger.Warnf("等待推送失败，改为轮询: %v", err)
		}
	}

	return c.pollStatus(ctx, sig, blockhash)
}

// pollStatus 轮询签名状态，未上链且区块哈希过期时返回 SubmissionRejectedError
func (c *Client) pollStatus(ctx context.Context, sig solana.Signature, blockhash solana.Hash) (*common.CommitStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	logger := common.Log.WithField("signature", sig.String())

	for {
		status, err := c.signatureStatus(ctx, sig)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debugf("查询签名状态失败: %v", err)
		case status == nil:
			valid, err := c.blockhashValid(ctx, blockhash)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Debugf("查询区块哈希有效性失败: %v", err)
			} else if !valid {
				return nil, &common.SubmissionRejectedError{Detail: ErrBlockhashExpired.Error(), Err: ErrBlockhashExpired}
			}
		case status.Err != nil:
			return nil, &common.SubmissionRejectedError{Detail: fmt.Sprintf("链上执行失败: %v", status.Err)}
		case reached(status.ConfirmationStatus, c.commitment):
			return &common.CommitStatus{
				Signature:          sig,
				Slot:               status.Slot,
				ConfirmationStatus: status.ConfirmationStatus,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// watchBlockhash 等待推送期间定期检查区块哈希，过期时调用 onExpired
func (c *Client) watchBlockhash(ctx context.Context, blockhash solana.Hash, onExpired func()) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		valid, err := c.blockhashValid(ctx, blockhash)
		if err == nil && !valid {
			onExpired()
			return
		}
	}
}

func (c *Client) blockhashValid(ctx context.Context, blockhash solana.Hash) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	out, err := c.rpcClient.IsBlockhashValid(ctx, blockhash, rpc.CommitmentProcessed)
	if err != nil {
		return false, err
	}
	if out == nil {
		return false, errors.New("区块哈希有效性返回为空")
	}
	return out.Value, nil
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.rpcClient.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// classifySendError 节点返回的 JSON-RPC 错误视为拒绝，传输错误原样返回
func classifySendError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &common.SubmissionRejectedError{Detail: rpcErr.Message, Err: err}
	}
	return errors.Wrap(err, "发送交易失败")
}

func rank(status rpc.ConfirmationStatusType) int {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}

func confirmationOf(commitment rpc.CommitmentType) rpc.ConfirmationStatusType {
	switch commitment {
	case rpc.CommitmentProcessed:
		return rpc.ConfirmationStatusProcessed
	case rpc.CommitmentFinalized:
		return rpc.ConfirmationStatusFinalized
	default:
		return rpc.ConfirmationStatusConfirmed
	}
}

func reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	return rank(status) > 0 && rank(status) >= rank(confirmationOf(commitment))
}
