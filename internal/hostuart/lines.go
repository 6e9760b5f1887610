package hostuart

import "io"

// Write is the transmit data register: it pushes p out of the open tty,
// retrying short writes until every byte is queued.
func (u *UART) Write(p []byte) (int, error) {
	port := u.Port()
	if port == nil {
		return 0, ErrNotOpen
	}

	var total int
	for total < len(p) {
		n, err := port.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// SetDTR drives the tty's DTR line
func (u *UART) SetDTR(state bool) error {
	port := u.Port()
	if port == nil {
		return ErrNotOpen
	}
	return port.SetDTR(state)
}

// SetRTS drives the tty's RTS line
func (u *UART) SetRTS(state bool) error {
	port := u.Port()
	if port == nil {
		return ErrNotOpen
	}
	return port.SetRTS(state)
}

// Drain blocks until everything written to the tty has left the line
func (u *UART) Drain() error {
	port := u.Port()
	if port == nil {
		return ErrNotOpen
	}
	return port.Drain()
}
