package flash

import (
	"os"
	"sync"
	"time"
)

// fakeChip emulates the STM32 ROM bootloader on the far side of a serial port
type fakeChip struct {
	mu sync.Mutex

	out    chan byte
	closed chan struct{}
	once   sync.Once

	state    string
	addr     uint32
	erased   bool
	mem      map[uint32]byte
	blockLen []int

	nackWrites bool
}

func newFakeChip() *fakeChip {
	return &fakeChip{
		out:    make(chan byte, 4096),
		closed: make(chan struct{}),
		mem:    map[uint32]byte{},
	}
}

func (c *fakeChip) send(bs ...byte) {
	for _, b := range bs {
		c.out <- b
	}
}

func (c *fakeChip) Read(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, os.ErrClosed
	case b := <-c.out:
		p[0] = b
		n := 1
		for n < len(p) {
			select {
			case b := <-c.out:
				p[n] = b
				n++
			default:
				return n, nil
			}
		}
		return n, nil
	case <-time.After(time.Millisecond):
		return 0, nil
	}
}

func (c *fakeChip) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return 0, os.ErrClosed
	default:
	}

	switch c.state {
	case "erase":
		c.state = ""
		c.erased = len(p) == 2 && p[0] == 0xff && p[1] == 0x00
		c.mem = map[uint32]byte{}
		c.send(b_STM_ACK)

	case "addr":
		c.state = ""
		if len(p) != 5 || xorChecksum(p[:4]) != p[4] {
			c.send(b_STM_NACK)
			return len(p), nil
		}
		c.addr = uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
		c.state = "data"
		c.send(b_STM_ACK)

	case "data":
		c.state = ""
		n := int(p[0]) + 1
		if len(p) != n+2 || xorChecksum(p[:n+1]) != p[n+1] || c.nackWrites {
			c.send(b_STM_NACK)
			return len(p), nil
		}
		for i, b := range p[1 : n+1] {
			c.mem[c.addr+uint32(i)] = b
		}
		c.blockLen = append(c.blockLen, n)
		c.send(b_STM_ACK)

	default:
		c.command(p)
	}

	return len(p), nil
}

func (c *fakeChip) command(p []byte) {
	if len(p) == 1 && p[0] == b_STM_SYNC {
		c.send(b_STM_ACK)
		return
	}
	if len(p) != 2 || p[0]^p[1] != 0xff {
		c.send(b_STM_NACK)
		return
	}

	switch p[0] {
	case 0x00:
		codes := []byte{0x31, 0x00, 0x01, 0x02, 0x11, 0x21, 0x31, 0x43, 0x63, 0x73, 0x82, 0x92}
		c.send(b_STM_ACK, byte(len(codes)-1))
		c.send(codes...)
		c.send(b_STM_ACK)
	case 0x02:
		c.send(b_STM_ACK, 0x01, 0x04, 0x13, b_STM_ACK)
	case 0x43:
		c.state = "erase"
		c.send(b_STM_ACK)
	case 0x31:
		c.state = "addr"
		c.send(b_STM_ACK)
	default:
		c.send(b_STM_NACK)
	}
}

func (c *fakeChip) SetReadTimeout(time.Duration) error {
	return nil
}

func (c *fakeChip) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakePin struct {
	mu    sync.Mutex
	level bool
	freed bool
}

func (p *fakePin) High()    { p.mu.Lock(); p.level = true; p.mu.Unlock() }
func (p *fakePin) Low()     { p.mu.Lock(); p.level = false; p.mu.Unlock() }
func (p *fakePin) Cleanup() { p.mu.Lock(); p.freed = true; p.mu.Unlock() }

// newTestMicrocontroller wires a microcontroller to a fake chip and pins
func newTestMicrocontroller(chip *fakeChip) (*Microcontroller, []*fakePin) {
	pinSettle = 0

	mc := NewMicrocontroller(nil)
	pins := []*fakePin{{}, {}, {}}
	mc.openPins = func() error {
		mc.pinPower, mc.pinBoot0, mc.pinBoot1 = pins[0], pins[1], pins[2]
		return nil
	}
	mc.dial = func(string, int) (Port, error) {
		return chip, nil
	}
	return mc, pins
}
