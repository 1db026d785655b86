package common

type TradeAction string

const (
	BUY  TradeAction = "buy"
	SELL TradeAction = "sell"
)

func (a TradeAction) String() string {
	return string(a)
}
