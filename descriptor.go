package bridge

// MaxBurst is the largest transfer a single descriptor can carry; the
// transfer size field of the channel control word is 12 bits wide.
const MaxBurst = 4095

// AddrUART1TDR is the UART1 transmit data register the DMA channel writes to.
const AddrUART1TDR uint32 = 0x4000A188

// Width is the per-beat transfer width of a DMA channel
type Width uint8

const (
	Width8Bit Width = iota
	Width16Bit
	Width32Bit
)

// Control mirrors the DMA channel control word
type Control struct {
	TransferSize int
	SrcBurst     uint8
	DstMinMode   bool
	DstBurst     uint8
	DstAddMode   bool
	SrcWidth     Width
	DstWidth     Width
	FixCnt       uint8
	SrcIncrement bool
	DstIncrement bool
	IntEnable    bool
}

const (
	ctrlSizeMask   = 0xfff
	ctrlSBSizePos  = 12
	ctrlDstMinPos  = 14
	ctrlDBSizePos  = 15
	ctrlDstAddPos  = 17
	ctrlSWidthPos  = 18
	ctrlDWidthPos  = 21
	ctrlFixCntPos  = 23
	ctrlSIPos      = 26
	ctrlDIPos      = 27
	ctrlIntPos     = 31
	ctrlTwoBitMask = 0x3
)

// Bits encodes the control word as the channel register expects it.
// TransferSize values above MaxBurst are truncated to the field width.
func (c Control) Bits() uint32 {
	v := uint32(c.TransferSize) & ctrlSizeMask
	v |= uint32(c.SrcBurst&ctrlTwoBitMask) << ctrlSBSizePos
	v |= uint32(c.DstBurst&ctrlTwoBitMask) << ctrlDBSizePos
	v |= uint32(c.SrcWidth&ctrlTwoBitMask) << ctrlSWidthPos
	v |= uint32(c.DstWidth&ctrlTwoBitMask) << ctrlDWidthPos
	v |= uint32(c.FixCnt&ctrlTwoBitMask) << ctrlFixCntPos
	v |= bit(c.DstMinMode, ctrlDstMinPos)
	v |= bit(c.DstAddMode, ctrlDstAddPos)
	v |= bit(c.SrcIncrement, ctrlSIPos)
	v |= bit(c.DstIncrement, ctrlDIPos)
	v |= bit(c.IntEnable, ctrlIntPos)
	return v
}

func bit(set bool, pos uint) uint32 {
	if set {
		return 1 << pos
	}
	return 0
}

// Descriptor is a linked-list item describing one DMA burst
type Descriptor struct {
	Src     []byte
	Dst     uint32
	Next    *Descriptor
	Control Control
}

// Payload returns the bytes the descriptor moves.
func (d *Descriptor) Payload() []byte {
	n := d.Control.TransferSize
	if n > len(d.Src) {
		n = len(d.Src)
	}
	if n < 0 {
		n = 0
	}
	return d.Src[:n]
}

// uartTxControl is the control word used for every UART transmit burst:
// byte wide, source increment, fixed destination register, no interrupt.
func uartTxControl() Control {
	return Control{
		TransferSize: MaxBurst,
		SrcIncrement: true,
		SrcWidth:     Width8Bit,
		DstWidth:     Width8Bit,
	}
}
