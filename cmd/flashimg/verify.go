package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/synthread/go-flashimage/redundancy"
)

var ErrNotBootable = errors.New("no bootloader copy passes its checksum")

type VerifyCmd struct {
	File string `arg help:"Image to check."`
}

func (v *VerifyCmd) Run(c *Context) error {
	l, err := c.layout()
	if err != nil {
		return err
	}

	img, err := os.ReadFile(v.File)
	if err != nil {
		return errors.Wrap(err, "could not read image")
	}

	r, err := redundancy.Inspect(img, l)
	if err != nil {
		return errors.Wrap(err, v.File)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	faint := color.New(color.Faint)

	booted := ""
	if r.Bootloader >= 0 {
		booted = l.Group("bootloader")[r.Bootloader].Name
	}

	for _, st := range r.Segments {
		status := faint.Sprint("unchecked")
		if st.Checked && st.Valid {
			status = green.Sprint("ok")
		} else if st.Checked {
			status = red.Sprintf("bad (sum %02x)", st.Sum)
		}

		marker := " "
		if st.Window.Name == booted {
			marker = "*"
		}
		fmt.Fprintf(c.Out, "%s %-16s %05x  %s\n", marker, st.Window.Name, st.Window.Offset, status)
	}

	if r.VoteCorrections > 0 || r.VoteUnrecoverable > 0 {
		fmt.Fprintf(c.Out, "application copies disagree: %d bytes outvoted, %d bytes differ in all copies\n",
			r.VoteCorrections, r.VoteUnrecoverable)
	}

	if !r.Bootable() {
		return ErrNotBootable
	}
	return nil
}
