package market

import (
	"errors"
	"sync"
	"time"
)

// ErrNoMarketData 标的没有注册过行情快照
var ErrNoMarketData = errors.New("no market data for symbol")

// tradeWindow 滚动 VWAP 的回看窗口。
const tradeWindow = 5 * time.Minute

type tradePoint struct {
	price float64
	qty   float64
	ts    time.Time
}

// slot 持有单个标的的状态。所有变更在槽位互斥锁内串行，
// 读取方看到的永远是一致的快照。
type slot struct {
	mu     sync.RWMutex
	snap   Snapshot
	trades []tradePoint
}

// Store 维护各标的的权威行情快照。
// 仅有两个写入方：周期性行情tick与成交模拟器。
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

func NewStore() *Store {
	return &Store{slots: make(map[string]*slot)}
}

// Register 用初始快照登记标的，已存在时整体覆盖。
func (s *Store) Register(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[snap.Symbol] = &slot{
		snap:   snap,
		trades: make([]tradePoint, 0, 256),
	}
}

// Get 返回标的快照的值拷贝。
func (s *Store) Get(symbol string) (Snapshot, error) {
	sl, ok := s.lookup(symbol)
	if !ok {
		return Snapshot{}, ErrNoMarketData
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.snap, nil
}

// Apply 在槽位锁内对标的快照执行 fn，行情源的tick更新入口，
// 单个标的同一时刻最多一个变更。
func (s *Store) Apply(symbol string, fn func(*Snapshot)) error {
	sl, ok := s.lookup(symbol)
	if !ok {
		return ErrNoMarketData
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(&sl.snap)
	sl.snap.UpdatedAt = time.Now()
	return nil
}

// ApplyTrade 把一笔成交记入快照：最新价、高低价、累计成交量
// 和回看窗口内的滚动 VWAP。交易行为只通过这里改写行情状态。
func (s *Store) ApplyTrade(symbol string, price, qty float64, ts time.Time) error {
	sl, ok := s.lookup(symbol)
	if !ok {
		return ErrNoMarketData
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.recordTradeLocked(price, qty, ts)
	sl.snap.UpdatedAt = ts
	return nil
}

// Symbols 返回全部已登记的标的。
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.slots))
	for sym := range s.slots {
		out = append(out, sym)
	}
	return out
}

func (s *Store) lookup(symbol string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[symbol]
	return sl, ok
}

func (sl *slot) recordTradeLocked(price, qty float64, ts time.Time) {
	snap := &sl.snap
	snap.Price.Last = price
	if snap.Price.Open == 0 {
		snap.Price.Open = price
	}
	if price > snap.Price.High || snap.Price.High == 0 {
		snap.Price.High = price
	}
	if price < snap.Price.Low || snap.Price.Low == 0 {
		snap.Price.Low = price
	}
	snap.Volume.Total += qty

	sl.trades = append(sl.trades, tradePoint{price: price, qty: qty, ts: ts})
	cut := ts.Add(-tradeWindow)
	trim := 0
	for trim < len(sl.trades) && sl.trades[trim].ts.Before(cut) {
		trim++
	}
	if trim > 0 {
		sl.trades = sl.trades[trim:]
	}

	var notional, volume float64
	for _, tp := range sl.trades {
		notional += tp.price * tp.qty
		volume += tp.qty
	}
	if volume > 0 {
		snap.Price.VWAP = notional / volume
	}
}
