package chainTx

import (
	"context"
	"testing"
	"time"

	"pump_buy/internal/common"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRecentBlockhash(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{name: "首次成功", failures: 0, wantCalls: 1},
		{name: "失败3次后成功", failures: 3, wantCalls: 4},
		{name: "失败9次后成功", failures: 9, wantCalls: 10},
		{name: "连续失败10次", failures: 10, wantCalls: 10, wantErr: true},
		{name: "持续失败", failures: 100, wantCalls: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway(tt.failures)
			policy, timer := testPolicy()

			hash, err := FetchRecentBlockhash(context.Background(), gw, policy)
			assert.Equal(t, tt.wantCalls, gw.calls())

			// 每两次尝试之间固定等待 100ms
			require.Len(t, timer.waits, tt.wantCalls-1)
			for _, w := range timer.waits {
				assert.Equal(t, 100*time.Millisecond, w)
			}

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, gw.hash, hash)
				return
			}

			var exhausted *common.RetryExhaustedError
			require.True(t, errors.As(err, &exhausted))
			assert.Equal(t, DefaultBlockhashAttempts, exhausted.Attempts)
			assert.True(t, errors.Is(err, errGatewayDown))
			assert.Contains(t, exhausted.Cause.Error(), "第 10 次")
		})
	}
}

func TestFetchRecentBlockhashCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := newFakeGateway(100)
	policy, _ := testPolicy()

	_, err := FetchRecentBlockhash(ctx, gw, policy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var exhausted *common.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, gw.calls())
}

func TestFetchRecentBlockhashSingleAttempt(t *testing.T) {
	gw := newFakeGateway(1)
	policy, timer := testPolicy()
	policy.MaxAttempts = 0

	_, err := FetchRecentBlockhash(context.Background(), gw, policy)
	var exhausted *common.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Empty(t, timer.waits)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 10, policy.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, policy.Delay)
	assert.Nil(t, policy.Timer)
}
