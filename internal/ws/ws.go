package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"pump_buy/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("WebSocket连接已关闭")

var requestID uint64

// Notification 签名订阅推送的结果，Err 非空表示交易在链上执行失败
type Notification struct {
	Slot uint64
	Err  interface{}
}

// Subscription 一次 signatureSubscribe 订阅，每次买入独占一条连接
type Subscription struct {
	conn      *websocket.Conn
	signature solana.Signature
	id        uint64

	closeOnce sync.Once
	writeMu   sync.Mutex
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// message 同时覆盖订阅应答和推送
type message struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// SubscribeSignature 连接 url 并订阅 sig 在 commitment 级别的确认
func SubscribeSignature(ctx context.Context, url string, sig solana.Signature, commitment rpc.CommitmentType) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "连接WebSocket服务失败")
	}

	sub := &Subscription{conn: conn, signature: sig}
	id := atomic.AddUint64(&requestID, 1)
	if err := sub.write(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			sig.String(),
			map[string]interface{}{"commitment": commitment},
		},
	}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "发送订阅请求失败")
	}

	stop := sub.closeOn(ctx)
	defer stop()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrap(err, "读取订阅应答失败")
		}
		if msg.ID == nil || *msg.ID != id {
			continue
		}
		if msg.Error != nil {
			conn.Close()
			return nil, errors.Errorf("订阅被拒绝: %d %s", msg.Error.Code, msg.Error.Message)
		}
		if err := json.Unmarshal(msg.Result, &sub.id); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "解析订阅编号失败")
		}
		break
	}

	common.Log.WithFields(logrus.Fields{
		"signature":    sig.String(),
		"subscription": sub.id,
	}).Debug("已订阅交易签名")
	return sub, nil
}

// Wait 阻塞直到收到该签名的推送，ctx 结束时关闭连接并返回 ctx 的错误
func (s *Subscription) Wait(ctx context.Context) (*Notification, error) {
	stop := s.closeOn(ctx)
	defer stop()

	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, ErrClosed
			}
			return nil, errors.Wrap(err, "读取推送失败")
		}
		if msg.Method != "signatureNotification" || msg.Params == nil {
			continue
		}
		if msg.Params.Subscription != s.id {
			continue
		}
		return &Notification{
			Slot: msg.Params.Result.Context.Slot,
			Err:  msg.Params.Result.Value.Err,
		}, nil
	}
}

// Close 取消订阅并关闭连接，可重复调用
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// 推送之后服务端会自动取消订阅，这里失败不影响结果
		_ = s.write(request{
			JSONRPC: "2.0",
			ID:      atomic.AddUint64(&requestID, 1),
			Method:  "signatureUnsubscribe",
			Params:  []interface{}{s.id},
		})
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) write(req request) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(req); err != nil {
		return errors.Wrap(err, req.Method)
	}
	return nil
}

// closeOn ctx 结束时关闭底层连接以打断阻塞的读取
func (s *Subscription) closeOn(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}
