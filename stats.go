package bridge

import "go.uber.org/atomic"

// Stats holds counters since the bridge was created
type Stats struct {
	RxBytes        atomic.Uint64 // bytes stored in the receive ring
	RxEvents       atomic.Uint64 // receive callbacks handled
	RxFIFODrops    atomic.Uint64 // threshold events dropped for lack of space
	RxTimeoutDrops atomic.Uint64 // timeout events dropped for lack of space
	RxDroppedBytes atomic.Uint64 // bytes discarded by dropped events
	RxOverruns     atomic.Uint64 // hardware overruns reported

	TxBursts    atomic.Uint64 // DMA bursts started
	TxBytes     atomic.Uint64 // bytes handed to the DMA channel
	TxBusySkips atomic.Uint64 // drain calls skipped because the channel was busy
	TxMaxBurst  atomic.Uint64 // largest burst started
}

// StatsSnapshot is a point in time copy of Stats
type StatsSnapshot struct {
	RxBytes        uint64
	RxEvents       uint64
	RxFIFODrops    uint64
	RxTimeoutDrops uint64
	RxDroppedBytes uint64
	RxOverruns     uint64

	TxBursts    uint64
	TxBytes     uint64
	TxBusySkips uint64
	TxMaxBurst  uint64

	RxUsed int
	RxCap  int
	TxUsed int
	TxCap  int
}

// Drops returns the number of receive events dropped for any reason
func (s StatsSnapshot) Drops() uint64 { return s.RxFIFODrops + s.RxTimeoutDrops }

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		RxBytes:        s.RxBytes.Load(),
		RxEvents:       s.RxEvents.Load(),
		RxFIFODrops:    s.RxFIFODrops.Load(),
		RxTimeoutDrops: s.RxTimeoutDrops.Load(),
		RxDroppedBytes: s.RxDroppedBytes.Load(),
		RxOverruns:     s.RxOverruns.Load(),
		TxBursts:       s.TxBursts.Load(),
		TxBytes:        s.TxBytes.Load(),
		TxBusySkips:    s.TxBusySkips.Load(),
		TxMaxBurst:     s.TxMaxBurst.Load(),
	}
}

func (s *Stats) recordBurst(n int) {
	s.TxBursts.Inc()
	s.TxBytes.Add(uint64(n))
	for {
		max := s.TxMaxBurst.Load()
		if uint64(n) <= max {
			return
		}
		if s.TxMaxBurst.CompareAndSwap(max, uint64(n)) {
			return
		}
	}
}
