package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/compose"
	"github.com/synthread/go-flashimage/output"
	"github.com/synthread/go-flashimage/segment"
)

type BuildCmd struct {
	Output string   `short:"o" default:"flash.bin" help:"Image file to write."`
	Size   int      `optional type:"int" help:"Image size in bytes, overrides the layout."`
	Bind   []string `optional short:"b" placeholder:"NAME=PATH" help:"Bind a segment to an artifact."`
}

// bindLayout applies --size and --bind to a layout
func (b *BuildCmd) bindLayout(l segment.Layout) (segment.Layout, error) {
	if b.Size > 0 {
		l.Size = b.Size
	}

	for _, kv := range b.Bind {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || name == "" || path == "" {
			return l, errors.Errorf("bad binding %q, want NAME=PATH", kv)
		}

		var err error
		if l, err = l.Bind(name, path); err != nil {
			return l, err
		}
	}

	return l, nil
}

func (b *BuildCmd) Run(c *Context) error {
	l, err := c.layout()
	if err != nil {
		return err
	}
	if l, err = b.bindLayout(l); err != nil {
		return err
	}

	img, reg, err := compose.Build(l)
	if err != nil {
		return err
	}

	if err := output.Write(b.Output, img.Bytes()); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"segments": reg.Len(),
		"size":     img.Size(),
		"layout":   l.Version,
	}).Infof("wrote %s", b.Output)

	return nil
}
