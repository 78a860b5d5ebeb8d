package flash

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const b_STM_ACK byte = 0x79
const b_STM_NACK byte = 0x1f
const b_STM_SYNC byte = 0x7f
const stmFlashBlockMax = 256

var STMTimeout = 5 * time.Second

// pinSettle is how long the power and boot lines are held after a change
var pinSettle = 10 * time.Millisecond

var ErrSTMFailedToAck = errors.New("failed to read ack or nack from stm microcontroller")
var ErrSTMNACK = errors.New("received nack from stm microcontroller")

type CommandCode int

// these must be the index of the bytes as received in the get data call
const (
	CommandCodeSync             CommandCode = -1
	CommandCodeGet              CommandCode = 0
	CommandCodeGetVersion       CommandCode = 1
	CommandCodeGetID            CommandCode = 2
	CommandCodeReadMemory       CommandCode = 3
	CommandCodeGo               CommandCode = 4
	CommandCodeWriteMemory      CommandCode = 5
	CommandCodeErase            CommandCode = 6
	CommandCodeWriteProtect     CommandCode = 7
	CommandCodeWriteUnprotect   CommandCode = 8
	CommandCodeReadoutProtect   CommandCode = 9
	CommandCodeReadoutUnprotect CommandCode = 10
)

// command codes reported by the chip, falling back to the defaults below
type commandCodeMap map[CommandCode]byte

var defaultCmdCodeMap = commandCodeMap{
	CommandCodeGet:              0x00,
	CommandCodeGetVersion:       0x01,
	CommandCodeGetID:            0x02,
	CommandCodeReadMemory:       0x11,
	CommandCodeGo:               0x21,
	CommandCodeWriteMemory:      0x31,
	CommandCodeErase:            0x43,
	CommandCodeWriteProtect:     0x63,
	CommandCodeWriteUnprotect:   0x73,
	CommandCodeReadoutProtect:   0x82,
	CommandCodeReadoutUnprotect: 0x92,
}

func (mc *Microcontroller) stmInit() error {
	mc.enterSTBL()

	if err := mc.stmCmdSync(); err != nil {
		return err
	}
	return mc.stmCmdGet()
}

// enterSTBL will execute the GPIO sequence to enter the STM bootloader
func (mc *Microcontroller) enterSTBL() {
	if mc.pinPower == nil {
		return
	}

	mc.pinPower.Low()

	// BOOT0 high and BOOT1 low when reapplying PWR will go into the bootloader
	// mode on STM32 chips
	mc.pinBoot0.High()
	mc.pinBoot1.Low()
	time.Sleep(pinSettle)
	mc.pinPower.High()
	time.Sleep(pinSettle)
}

// exitSTBL will execute the GPIO sequence to boot the chip from flash
func (mc *Microcontroller) exitSTBL() {
	if mc.pinPower == nil {
		return
	}

	mc.pinPower.Low()
	mc.pinBoot0.Low()
	mc.pinBoot1.Low()
	time.Sleep(pinSettle)
	mc.pinPower.High()
	time.Sleep(pinSettle)
}

// stmCommandSequence will return the byte sequence required for the requested
// command
func (mc *Microcontroller) stmCommandSequence(c CommandCode) []byte {
	if c == CommandCodeSync {
		return []byte{b_STM_SYNC}
	}

	cmdb, ok := mc.stmCmdCodes[c]
	if !ok {
		cmdb, ok = defaultCmdCodeMap[c]
		if !ok {
			panic("unknown command code")
		}
	}

	return []byte{cmdb, 0xff ^ cmdb}
}

// stmReadWithLength will read the next bytes based on a STM formatted message
// which is prefixed by a single byte that holds the length minus one
func (mc *Microcontroller) stmReadWithLength() ([]byte, error) {
	n, err := mc.ReadN(1, STMTimeout)
	if err != nil {
		return nil, err
	}
	return mc.ReadN(int(n[0])+1, STMTimeout)
}

// stmWriteWithChecksum will write the requested data with a checksum at the end
func (mc *Microcontroller) stmWriteWithChecksum(bs []byte) error {
	return mc.Write(append(bs, xorChecksum(bs)))
}

// stmWriteWithNAndChecksum will write the data prefixed with the length in a
// single byte and suffixed with the checksum of the entire message
func (mc *Microcontroller) stmWriteWithNAndChecksum(bs []byte) error {
	n := byte(len(bs) - 1)
	return mc.stmWriteWithChecksum(append([]byte{n}, bs...))
}

// stmReadAckOrNack reads the pending byte and returns nil for ACK, ErrSTMNACK
// for NACK and ErrSTMFailedToAck for anything else
func (mc *Microcontroller) stmReadAckOrNack() error {
	bs, err := mc.ReadN(1, STMTimeout)
	if err != nil {
		return err
	}

	switch bs[0] {
	case b_STM_ACK:
		return nil
	case b_STM_NACK:
		return ErrSTMNACK
	}

	return ErrSTMFailedToAck
}

// stmProgram will erase the flash and write every span in blocks the
// bootloader accepts
func (mc *Microcontroller) stmProgram(spans []Span) error {
	if err := mc.stmCmdEraseMemory(); err != nil {
		return errors.Wrap(err, "could not erase memory")
	}

	for _, s := range spans {
		base := mc.config.FlashBase + uint32(s.Offset)

		for i, blk := range blocks(s.Data, stmFlashBlockMax) {
			addr := base + uint32(i*stmFlashBlockMax)

			logrus.Debugf("wm: %s[%d] @ %x [l=%d]", s.Name, i, addr, len(blk))

			if err := mc.stmCmdWriteMemory(addr, blk); err != nil {
				return errors.Wrapf(err, "could not write %s block %d", s.Name, i)
			}
		}
	}

	return nil
}
