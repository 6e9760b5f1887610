package bridge

// SendFromRingBuffer starts one DMA burst from the transmit ring when data
// is queued and the channel is idle. At most MaxBurst bytes are popped per
// call; the rest stays queued for the next call. It returns the burst size.
//
// Only one burst is ever in flight: a busy channel makes the call a no-op.
func (b *Bridge) SendFromRingBuffer() (int, Result) {
	if b.tx.Len() == 0 {
		return 0, ResultEmpty
	}

	b.mu.Lock()
	dma, ind := b.dma, b.indicator
	b.mu.Unlock()

	if dma == nil {
		return 0, ResultSkipped
	}

	b.txMu.Lock()
	defer b.txMu.Unlock()

	if dma.Busy() {
		b.stats.TxBusySkips.Inc()
		return 0, ResultBusy
	}

	n := b.tx.Read(b.scratch[:])
	if n == 0 {
		return 0, ResultEmpty
	}

	dma.Stop()
	b.desc.Control.TransferSize = n
	dma.Load(&b.desc)
	dma.Start()

	b.stats.recordBurst(n)
	if ind != nil {
		ind.Toggle(TxIndicator)
	}
	return n, ResultOK
}
