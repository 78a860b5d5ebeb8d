package main

import (
	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/flash"
)

type ProgramCmd struct {
	TTY       string `optional name:"tty" help:"Serial device of the bootloader UART." default:"/dev/ttyS1"`
	Baud      int    `optional help:"Bootloader baud rate." default:"115200"`
	FlashBase uint32 `optional name:"flash-base" type:"addr" help:"Address image offset 0 maps to." default:"0x08000000"`
	Boot0     int    `optional name:"boot0-gpio" help:"BOOT0 line." default:"39"`
	Boot1     int    `optional name:"boot1-gpio" help:"BOOT1 line." default:"41"`
	Power     int    `optional name:"power-gpio" help:"Power line." default:"19"`
	File      string `arg help:"Composed image to program."`
}

func (p *ProgramCmd) Run(c *Context) error {
	l, err := c.layout()
	if err != nil {
		return err
	}

	mc := flash.NewMicrocontroller(&flash.Config{
		Boot0GPIO:      p.Boot0,
		Boot1GPIO:      p.Boot1,
		PowerGPIO:      p.Power,
		BootloaderBaud: p.Baud,
		TTY:            p.TTY,
		FlashBase:      p.FlashBase,
	})

	if err := mc.ProgramFile(p.File, l); err != nil {
		return err
	}

	logrus.Infof("programmed %s via %s", p.File, mc.TTY())
	return nil
}
