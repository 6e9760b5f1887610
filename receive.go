package bridge

// HandleReceive is the receive interrupt callback. It never blocks.
//
// Threshold and timeout events are appended to the receive ring when
// 0 < len(Data) < free space, otherwise the whole event is dropped and a
// diagnostic is logged. Overrun events only produce a diagnostic.
func (b *Bridge) HandleReceive(ev RxEvent) Result {
	b.stats.RxEvents.Inc()

	switch ev.Reason {
	case RxFIFOThreshold, RxTimeout:
		n := len(ev.Data)
		free := b.rx.Free()
		if n == 0 || n >= free {
			b.recordDrop(ev.Reason, n)
			b.log.Warn("receive buffer would overflow", "cause", ev.Reason, "size", n, "free", free)
			return ResultDropped
		}
		// Single writer: nothing else can shrink free space between the
		// check and the write.
		b.rx.Write(ev.Data)
		b.stats.RxBytes.Add(uint64(n))
		b.notifyReadable()
		return ResultOK

	case RxOverrun:
		b.stats.RxOverruns.Inc()
		b.log.Warn("receive overrun", "cause", ev.Reason)
		return ResultDropped

	default:
		b.log.Debug("ignoring receive event", "cause", ev.Reason, "size", len(ev.Data))
		return ResultEmpty
	}
}

func (b *Bridge) recordDrop(reason RxReason, n int) {
	if reason == RxTimeout {
		b.stats.RxTimeoutDrops.Inc()
	} else {
		b.stats.RxFIFODrops.Inc()
	}
	b.stats.RxDroppedBytes.Add(uint64(n))
}

// edge-triggered notify
func (b *Bridge) notifyReadable() {
	select {
	case b.readable <- struct{}{}:
	default:
	}
}
