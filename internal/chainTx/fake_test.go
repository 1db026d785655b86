package chainTx

import (
	"context"
	"sync"
	"time"

	"pump_buy/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
)

var errGatewayDown = errors.New("rpc 不可用")

// fakeGateway 前 failures 次获取区块哈希失败，之后成功
type fakeGateway struct {
	mu             sync.Mutex
	failures       int
	blockhashCalls int
	hash           solana.Hash
	sendErr        error
	emptyStatus    bool
	sent           []*solana.Transaction
}

func newFakeGateway(failures int) *fakeGateway {
	return &fakeGateway{
		failures: failures,
		hash:     solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"),
	}
}

func (g *fakeGateway) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blockhashCalls++
	if g.blockhashCalls <= g.failures {
		return solana.Hash{}, errors.Wrapf(errGatewayDown, "第 %d 次", g.blockhashCalls)
	}
	return g.hash, nil
}

func (g *fakeGateway) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*common.CommitStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, tx)
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	if g.emptyStatus {
		return nil, nil
	}
	return &common.CommitStatus{
		Signature:          tx.Signatures[0],
		Slot:               42,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockhashCalls
}

// instantTimer 立即触发，记录每次等待时长
type instantTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

func testPolicy() (RetryPolicy, *instantTimer) {
	timer := newInstantTimer()
	return RetryPolicy{
		MaxAttempts: DefaultBlockhashAttempts,
		Delay:       DefaultBlockhashDelay,
		Timer:       timer,
	}, timer
}
