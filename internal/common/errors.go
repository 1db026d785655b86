package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDerivationExhausted 256 个 bump 均未找到合法的程序派生地址
var ErrDerivationExhausted = errors.New("未找到有效的程序派生地址")

// ErrInvalidSeeds 种子数量或长度超出限制，任何 bump 都无法派生
var ErrInvalidSeeds = errors.New("程序派生地址种子无效")

// ConfigurationError 启动参数缺失或格式错误，在任何网络请求之前返回
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("配置错误: %v", e.Err)
	}
	return fmt.Sprintf("配置错误 %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RetryExhaustedError 重试次数用尽，Cause 为最后一次失败的原因
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("重试 %d 次后仍然失败: %v", e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// SigningError 签名者不可用或私钥格式错误
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("签名交易失败: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// SubmissionRejectedError 链上拒绝：余额不足、区块哈希过期、超出价格上限、模拟失败等
type SubmissionRejectedError struct {
	Detail string
	Err    error
}

func (e *SubmissionRejectedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("交易被拒绝: %s", e.Detail)
	}
	return fmt.Sprintf("交易被拒绝: %s: %v", e.Detail, e.Err)
}

func (e *SubmissionRejectedError) Unwrap() error { return e.Err }
