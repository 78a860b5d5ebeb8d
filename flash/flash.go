package flash

import (
	"os"

	"github.com/pkg/errors"
	"github.com/synthread/go-flashimage/segment"
)

// Span is a run of image bytes to be written at an offset from the flash base
type Span struct {
	Name   string
	Offset int
	Data   []byte
}

// Spans will return one span per layout window covering the whole reserved
// window. The zero padding after each segment has to reach the chip, since
// erased flash reads back as 0xff and would break the window checksum.
func Spans(l segment.Layout, img []byte) ([]Span, error) {
	if len(img) != l.Size {
		return nil, errors.Errorf("image is %d bytes, layout expects %d", len(img), l.Size)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	spans := make([]Span, 0, len(l.Windows))
	for _, w := range l.Windows {
		spans = append(spans, Span{Name: w.Name, Offset: w.Offset, Data: img[w.Offset:w.End()]})
	}
	return spans, nil
}

// ProgramFile will read a composed image and program its windows
func (mc *Microcontroller) ProgramFile(filePath string, l segment.Layout) error {
	bs, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	spans, err := Spans(l, bs)
	if err != nil {
		return errors.Wrap(err, filePath)
	}
	return mc.ProgramImage(spans)
}

// ProgramImage will erase the chip and write the spans at their offsets from
// the configured flash base
func (mc *Microcontroller) ProgramImage(spans []Span) error {
	if !mc.IsOpen() {
		if err := mc.Open(); err != nil {
			return err
		}
		defer mc.Close()
	}

	return mc.stmProgram(spans)
}
