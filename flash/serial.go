package flash

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var ErrTimeout = errors.New("timed out reading from microcontroller")
var ErrClosed = errors.New("serial port is closed")

// Port is the part of a serial port the bootloader protocol needs
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// dialSerial opens the TTY with the framing the STM32 ROM bootloader expects
func dialSerial(tty string, baud int) (Port, error) {
	return serial.Open(tty, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	})
}

// Open will take the pins, open the port and put the chip into its bootloader
func (mc *Microcontroller) Open() (err error) {
	if err = mc.openPins(); err != nil {
		return errors.Wrap(err, "could not setup pins")
	}

	mc.ttyPort, err = mc.dial(mc.TTY(), mc.BaudRate())
	if err != nil {
		mc.releasePins()
		return errors.Wrap(err, "could not open serial")
	}

	mc.ttyRx = make(chan byte, 64)
	mc.ttyStop = make(chan struct{})
	mc.ttyDone = make(chan struct{})
	go rx(mc.ttyPort, mc.ttyRx, mc.ttyStop, mc.ttyDone)

	if err = errors.Wrap(mc.stmInit(), "could not init stm chip"); err != nil {
		mc.Close()
		return
	}

	logrus.Debug("mcu open")

	return nil
}

// Close will close the connection and reset the MCU. It returns once the rx
// loop has exited.
func (mc *Microcontroller) Close() error {
	mc.exitSTBL()

	if mc.ttyPort != nil {
		close(mc.ttyStop)
		mc.ttyPort.Close()
		<-mc.ttyDone
		mc.ttyPort = nil
	}

	mc.releasePins()

	logrus.Debug("mcu close")

	return nil
}

// releasePins resets the pins to a running state
func (mc *Microcontroller) releasePins() {
	for _, p := range []Pin{mc.pinBoot0, mc.pinBoot1, mc.pinPower} {
		if p != nil {
			p.Cleanup()
		}
	}
}

func (mc *Microcontroller) IsOpen() bool {
	return mc.ttyPort != nil
}

// rx is the loop that will read from the port and write the incoming bytes
// to the rx chan until the port fails, is closed, or stop is closed
func rx(port Port, out chan<- byte, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 64)

	port.SetReadTimeout(1 * time.Millisecond)

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			if isClosedErr(err) {
				return
			}

			logrus.Error("rx err: ", err.Error())
			return
		}

		for _, b := range buf[:n] {
			select {
			case out <- b:
			case <-stop:
				return
			}
		}
		if n > 0 {
			logrus.Debugf("mcu rx: %x", buf[:n])
		}
	}
}

// isClosedErr reports whether a read failed only because the port went away
func isClosedErr(err error) bool {
	var perr *serial.PortError
	if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
		return true
	}
	return errors.Is(err, syscall.EBADF) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF)
}

// Write will write the specified bytes to the microcontroller
func (mc *Microcontroller) Write(bs ...[]byte) (err error) {
	if !mc.IsOpen() {
		return ErrClosed
	}

	if len(bs) == 0 {
		panic("must provide at least one []byte")
	}

	for _, b := range bs {
		_, err = mc.ttyPort.Write(b)
		if err != nil {
			return
		}
		logrus.Debugf("mcu tx: %x", b)
	}

	return
}

// ReadN will read exactly N bytes from the rx chan
func (mc *Microcontroller) ReadN(n int, to time.Duration) ([]byte, error) {
	if !mc.IsOpen() {
		return nil, ErrClosed
	}

	bs := make([]byte, n)

	for i := 0; i < n; i++ {
		select {
		case <-time.After(to):
			return nil, ErrTimeout
		case b := <-mc.ttyRx:
			bs[i] = b
		case <-mc.ttyDone:
			return nil, ErrClosed
		}
	}

	return bs, nil
}
