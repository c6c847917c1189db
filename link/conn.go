package link

import (
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds a single read so the acquisition loop never blocks
// indefinitely. A timed-out read returns n == 0 with a nil error and is not
// treated as disconnection
const readTimeout = 100 * time.Millisecond

// Conn is the part of the device handle the supervisor drives. It is
// satisfied by serial.Port and by test doubles
type Conn interface {
	Read(p []byte) (n int, err error)
	Close() error
}

// Opener acquires a fresh connection handle at the given address and speed
type Opener func(portName string, baudRate int) (Conn, error)

// OpenSerial is the default Opener. It opens the named serial device in 8N1
// mode at the given baud rate with a bounded read timeout
func OpenSerial(portName string, baudRate int) (Conn, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}
