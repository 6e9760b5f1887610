// Package bridge connects a USB-serial data stream to a UART through two
// fixed 8 KiB ring buffers, with interrupt-driven receive and DMA-fed
// transmit.
//
// The peripherals are capabilities (UART, DMAChannel, GPIO, Indicator)
// resolved through a Registry, so the same bridge drives real hardware
// drivers or the hosted backends under internal/.
//
// # Basic Usage
//
//	b, err := bridge.New(bridge.WithLogger(logger), bridge.WithGPIO(pins))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Init(devices); err != nil {
//	    // non-fatal: missing peripherals turn into no-ops
//	    logger.Warn("bridge degraded", "err", err)
//	}
//	b.InitRingBuffers()
//	_ = b.Configure(bridge.LineConfig{BaudRate: 115200, DataBits: 8})
//
// # Data Flow
//
// The receive callback appends each RX FIFO threshold or receive timeout
// event to RxBuffer when it fits, and drops the whole event otherwise:
//
//	n := b.RxBuffer().Read(buf) // mainline consumer
//
// The USB side stages outgoing bytes in TxBuffer, and a mainline loop
// calls SendFromRingBuffer, which starts a DMA burst of at most MaxBurst
// bytes whenever the channel is idle:
//
//	b.TxBuffer().Write(data)
//	n, res := b.SendFromRingBuffer()
//
// # Flow Control Lines
//
//	b.SetDTRRTS(dtrPin, rtsPin)
//	_ = b.DTRInit()
//	_ = b.SetDTR(gpio.High)
//
// # Error Handling
//
// Receive and transmit steps return a Result (ResultOK, ResultDropped,
// ResultSkipped, ResultBusy, ResultEmpty) and update Stats; none of them
// halts the bridge. Setup calls return sentinel errors:
//
//	var (
//	    ErrDeviceNotFound     // peripheral missing from the registry
//	    ErrInvalidBaudRate    // baud rate not positive
//	    ErrInvalidDataBits    // data bits outside 5..8, previous width kept
//	    ErrAlreadyInitialized // Init called twice
//	    // ... and more
//	)
//
// # Default Configuration
//
//   - UART: "uart1"
//   - DMA channel: 2
//   - Line: 115200 8N1
//   - Ring buffers: 8192 bytes each
//   - DMA burst: 4095 bytes
package bridge
