package tty

import "golang.org/x/sys/unix"

// cmspar selects stick (mark/space) parity; not exported by x/sys/unix
// on every architecture.
const cmspar = 0x40000000

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

var charSize = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

func baudConstant(rate int) (uint32, error) {
	b, ok := baudRates[rate]
	if !ok {
		return 0, ErrInvalidBaudRate
	}
	return b, nil
}

// rawTermios fills t with a raw-mode line discipline for cfg. Fields not
// covered by cfg are cleared.
func rawTermios(t *unix.Termios, cfg Config) error {
	speed, err := baudConstant(cfg.BaudRate)
	if err != nil {
		return err
	}
	size, ok := charSize[cfg.DataBits]
	if !ok {
		return ErrInvalidConfig
	}

	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0
	t.Cflag = unix.CREAD | unix.CLOCAL | size | speed
	t.Ispeed = speed
	t.Ospeed = speed

	switch cfg.StopBits {
	case 1:
	case 2:
		t.Cflag |= unix.CSTOPB
	default:
		return ErrInvalidConfig
	}

	switch cfg.Parity {
	case ParityNone:
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | unix.PARODD | cmspar
	case ParitySpace:
		t.Cflag |= unix.PARENB | cmspar
	default:
		return ErrInvalidConfig
	}
	if cfg.Parity != ParityNone {
		t.Iflag |= unix.INPCK
	}

	if cfg.FlowControl == FlowControlRTSCTS {
		t.Cflag |= unix.CRTSCTS
	}

	t.Cc[unix.VMIN] = uint8(cfg.ReadMin)
	t.Cc[unix.VTIME] = uint8(cfg.ReadTimeoutTenths)
	return nil
}
