package flash

import (
	"github.com/piotrjaromin/gpio"
	"github.com/pkg/errors"
)

var DefaultBaud = 115200
var DefaultTTY = "/dev/ttyS1"

// DefaultFlashBase is where STM32 parts map their main flash
var DefaultFlashBase uint32 = 0x08000000

// Config defines configuration for communicating with and programming the
// microcontroller
type Config struct {
	Boot0GPIO int
	Boot1GPIO int
	PowerGPIO int

	BootloaderBaud int
	TTY            string

	// FlashBase is added to every image offset
	FlashBase uint32
}

// Pin is a GPIO output line
type Pin interface {
	High()
	Low()
	Cleanup()
}

// sysfsPin adapts a sysfs GPIO line to Pin. Errors from the line are ignored,
// a stuck line shows up as a failed sync.
type sysfsPin struct {
	pin gpio.Pin
}

func (p sysfsPin) High()    { p.pin.High() }
func (p sysfsPin) Low()     { p.pin.Low() }
func (p sysfsPin) Cleanup() { p.pin.Cleanup() }

// Microcontroller represents an embedded microcontroller chip that is
// programmed over UART through its ROM bootloader
type Microcontroller struct {
	config *Config

	pinPower Pin
	pinBoot0 Pin
	pinBoot1 Pin

	stmCmdCodes          commandCodeMap
	stmBootloaderVersion byte

	dial     func(tty string, baud int) (Port, error)
	openPins func() error

	ttyPort Port
	ttyRx   chan byte
	ttyStop chan struct{}
	ttyDone chan struct{}

	identity string
}

// NewMicrocontroller will create a new reference to a particular chip. No
// hardware is touched until Open.
func NewMicrocontroller(c *Config) *Microcontroller {
	if c == nil {
		c = &Config{}
	}

	if c.Boot0GPIO <= 0 {
		c.Boot0GPIO = 39
	}
	if c.Boot1GPIO <= 0 {
		c.Boot1GPIO = 41
	}
	if c.PowerGPIO <= 0 {
		c.PowerGPIO = 19
	}
	if c.FlashBase == 0 {
		c.FlashBase = DefaultFlashBase
	}

	mc := &Microcontroller{
		config:      c,
		stmCmdCodes: commandCodeMap{},
		dial:        dialSerial,
	}
	mc.openPins = mc.setupPins

	return mc
}

func (mc *Microcontroller) setupPins() error {
	power, err := gpio.NewOutput(uint(mc.config.PowerGPIO), true)
	if err != nil {
		return errors.Wrapf(err, "power gpio %d", mc.config.PowerGPIO)
	}
	boot0, err := gpio.NewOutput(uint(mc.config.Boot0GPIO), false)
	if err != nil {
		return errors.Wrapf(err, "boot0 gpio %d", mc.config.Boot0GPIO)
	}
	boot1, err := gpio.NewOutput(uint(mc.config.Boot1GPIO), false)
	if err != nil {
		return errors.Wrapf(err, "boot1 gpio %d", mc.config.Boot1GPIO)
	}

	mc.pinPower = sysfsPin{power}
	mc.pinBoot0 = sysfsPin{boot0}
	mc.pinBoot1 = sysfsPin{boot1}

	return nil
}

// Identify will report back a unique string with the ID of the chip
func (mc *Microcontroller) Identify() (string, error) {
	if mc.identity != "" {
		return mc.identity, nil
	}

	if !mc.IsOpen() {
		if err := mc.Open(); err != nil {
			return "", err
		}
		defer mc.Close()
	}

	pid, err := mc.stmCmdGetId()
	if err != nil {
		return "", err
	}
	mc.identity = "STM_" + pid

	return mc.identity, nil
}

// TTY will return the TTY that will be used
func (mc *Microcontroller) TTY() string {
	if mc.config.TTY != "" {
		return mc.config.TTY
	}
	return DefaultTTY
}

// BaudRate will return the baud rate used to connect to the TTY
func (mc *Microcontroller) BaudRate() int {
	if mc.config.BootloaderBaud > 0 {
		return mc.config.BootloaderBaud
	}
	return DefaultBaud
}

// Reset will force a power cycle on the microcontroller
func (mc *Microcontroller) Reset() {
	mc.exitSTBL()
}
