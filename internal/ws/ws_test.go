package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

type subscribeRequest struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newServer 应答订阅后调用 after 推送消息
func newServer(t *testing.T, reject bool, after func(conn *websocket.Conn)) (string, <-chan subscribeRequest) {
	t.Helper()
	received := make(chan subscribeRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		received <- req

		if reject {
			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
			})
			return
		}
		conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 7})
		if after != nil {
			after(conn)
		}
		// 等待客户端关闭
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), received
}

func notification(subscription uint64, slot uint64, txErr interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "signatureNotification",
		"params": map[string]interface{}{
			"subscription": subscription,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value":   map[string]interface{}{"err": txErr},
			},
		},
	}
}

func TestSubscribeSignature(t *testing.T) {
	sig := solana.SignatureFromBytes(make([]byte, 64))

	t.Run("收到确认推送", func(t *testing.T) {
		url, received := newServer(t, false, func(conn *websocket.Conn) {
			// 其它订阅的推送应被忽略
			conn.WriteJSON(notification(8, 1, nil))
			conn.WriteJSON(notification(7, 123, nil))
		})

		sub, err := SubscribeSignature(context.Background(), url, sig, rpc.CommitmentConfirmed)
		require.NoError(t, err)
		defer sub.Close()

		req := <-received
		assert.Equal(t, "signatureSubscribe", req.Method)
		require.Len(t, req.Params, 2)
		assert.JSONEq(t, `"`+sig.String()+`"`, string(req.Params[0]))
		assert.JSONEq(t, `{"commitment":"confirmed"}`, string(req.Params[1]))

		n, err := sub.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(123), n.Slot)
		assert.Nil(t, n.Err)
	})

	t.Run("链上执行失败", func(t *testing.T) {
		url, _ := newServer(t, false, func(conn *websocket.Conn) {
			conn.WriteJSON(notification(7, 5, map[string]interface{}{"InstructionError": []interface{}{3, "Custom"}}))
		})

		sub, err := SubscribeSignature(context.Background(), url, sig, rpc.CommitmentConfirmed)
		require.NoError(t, err)
		defer sub.Close()

		n, err := sub.Wait(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, n.Err)
	})

	t.Run("订阅被拒绝", func(t *testing.T) {
		url, _ := newServer(t, true, nil)

		_, err := SubscribeSignature(context.Background(), url, sig, rpc.CommitmentConfirmed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid params")
	})

	t.Run("等待超时", func(t *testing.T) {
		url, _ := newServer(t, false, nil)

		sub, err := SubscribeSignature(context.Background(), url, sig, rpc.CommitmentConfirmed)
		require.NoError(t, err)
		defer sub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = sub.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCloseTwice(t *testing.T) {
	url, _ := newServer(t, false, nil)

	sub, err := SubscribeSignature(context.Background(), url, solana.Signature{}, rpc.CommitmentFinalized)
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
}

func TestWriteErrorNamesMethod(t *testing.T) {
	url, _ := newServer(t, false, nil)

	sub, err := SubscribeSignature(context.Background(), url, solana.Signature{}, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.NoError(t, sub.conn.Close())

	err = sub.write(request{JSONRPC: "2.0", ID: 99, Method: "signatureUnsubscribe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signatureUnsubscribe: ")
	assert.NotEqual(t, err, errors.Cause(err))
}
