package chainTx

import (
	"context"
	"time"

	"pump_buy/internal/common"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBlockhashAttempts = 10
	DefaultBlockhashDelay    = 100 * time.Millisecond
)

// BlockhashSource 提供最新区块哈希
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// RetryPolicy 固定间隔重试，不做指数退避和抖动。
// Timer 为 nil 时使用真实计时器，测试中可替换。
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Timer       backoff.Timer
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultBlockhashAttempts,
		Delay:       DefaultBlockhashDelay,
	}
}

// FetchRecentBlockhash 获取最新区块哈希，失败时按策略重试。
// 中间失败只记录 debug 日志，最后一次失败以 RetryExhaustedError 返回。
func FetchRecentBlockhash(ctx context.Context, src BlockhashSource, policy RetryPolicy) (solana.Hash, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	attempts := 0
	operation := func() (solana.Hash, error) {
		attempts++
		return src.LatestBlockhash(ctx)
	}
	notify := func(err error, wait time.Duration) {
		common.Log.WithFields(logrus.Fields{
			"attempt": attempts,
			"wait":    wait.String(),
		}).Debugf("获取区块哈希失败，稍后重试: %v", err)
	}

	hash, err := backoff.RetryNotifyWithTimerAndData[solana.Hash](operation, b, notify, policy.Timer)
	if err == nil {
		return hash, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return solana.Hash{}, ctxErr
	}
	return solana.Hash{}, &common.RetryExhaustedError{Attempts: attempts, Cause: err}
}
