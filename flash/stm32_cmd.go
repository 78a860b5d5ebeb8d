package flash

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"
)

// stmExecCmd will run the specified command and check that it is ACK'd
func (mc *Microcontroller) stmExecCmd(c CommandCode) error {
	if err := mc.Write(mc.stmCommandSequence(c)); err != nil {
		return err
	}
	return mc.stmReadAckOrNack()
}

// stmCmdSync will sync the bootloader
func (mc *Microcontroller) stmCmdSync() error {
	return mc.stmExecCmd(CommandCodeSync)
}

// stmCmdGet will load the bootloader version and the command codes it supports
func (mc *Microcontroller) stmCmdGet() error {
	if err := mc.stmExecCmd(CommandCodeGet); err != nil {
		return err
	}

	bs, err := mc.stmReadWithLength()
	if err != nil {
		return err
	}

	if err = mc.stmReadAckOrNack(); err != nil {
		return err
	}

	mc.stmBootloaderVersion = bs[0]

	for i, code := range bs[1:] {
		mc.stmCmdCodes[CommandCode(i)] = code
	}

	return nil
}

// stmCmdGetId will return the PID of the microcontroller
func (mc *Microcontroller) stmCmdGetId() (string, error) {
	if err := mc.stmExecCmd(CommandCodeGetID); err != nil {
		return "", err
	}

	bs, err := mc.stmReadWithLength()
	if err != nil {
		return "", err
	}

	if err = mc.stmReadAckOrNack(); err != nil {
		return "", err
	}

	return hex.EncodeToString(bs), nil
}

// stmCmdEraseMemory will request a global erase of the flash
func (mc *Microcontroller) stmCmdEraseMemory() error {
	if err := mc.stmExecCmd(CommandCodeErase); err != nil {
		return err
	}

	if err := mc.Write([]byte{0xff, 0x00}); err != nil {
		return err
	}

	return mc.stmReadAckOrNack()
}

// stmCmdWriteMemory will write up to 256 bytes at the provided address
func (mc *Microcontroller) stmCmdWriteMemory(addr uint32, data []byte) error {
	if len(data) == 0 || len(data) > stmFlashBlockMax {
		return errors.Errorf("write of %d bytes is not a valid block", len(data))
	}

	if err := mc.stmExecCmd(CommandCodeWriteMemory); err != nil {
		return errors.Wrap(err, "err exec write mem")
	}

	addrbs := binary.BigEndian.AppendUint32(nil, addr)

	if err := mc.stmWriteWithChecksum(addrbs); err != nil {
		return errors.Wrap(err, "err writing addr")
	}
	if err := mc.stmReadAckOrNack(); err != nil {
		return errors.Wrap(err, "addr ack fail")
	}

	if err := mc.stmWriteWithNAndChecksum(data); err != nil {
		return errors.Wrap(err, "err writing data")
	}

	return errors.Wrap(mc.stmReadAckOrNack(), "err ack after write data")
}
