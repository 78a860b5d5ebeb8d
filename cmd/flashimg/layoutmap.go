package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/synthread/go-flashimage/config"
)

type MapCmd struct {
	YAML bool `optional name:"yaml" help:"Print the layout as a layout file instead of a table."`
}

func (m *MapCmd) Run(c *Context) error {
	l, err := c.layout()
	if err != nil {
		return err
	}

	if m.YAML {
		out, err := config.FromLayout(l).Marshal()
		if err != nil {
			return err
		}
		_, err = c.Out.Write(out)
		return err
	}

	bold := color.New(color.Bold)
	bold.Fprintf(c.Out, "layout v%d, image 0x%05x bytes\n", l.Version, l.Size)
	bold.Fprintf(c.Out, "%-16s %-7s %-7s %-7s %-10s %s\n", "segment", "offset", "end", "size", "checksum", "source")

	for _, w := range l.Windows {
		fmt.Fprintf(c.Out, "%-16s %05x   %05x   %05x   %-10s %s\n",
			w.Name, w.Offset, w.End(), w.ReservedSize, w.Policy, w.Source)
	}

	return nil
}
