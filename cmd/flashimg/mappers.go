package main

import (
	"reflect"
	"strconv"

	"github.com/alecthomas/kong"
)

// intMapper accepts decimal, 0x hex, 0o octal and 0b binary integers
type intMapper struct{}

func (intMapper) Decode(ctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	if err := ctx.Scan.PopValueInto("int", &value); err != nil {
		return err
	}
	i, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return err
	}
	target.SetInt(i)
	return nil
}

// uint32Mapper is intMapper for 32-bit addresses
type uint32Mapper struct{}

func (uint32Mapper) Decode(ctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	if err := ctx.Scan.PopValueInto("addr", &value); err != nil {
		return err
	}
	i, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return err
	}
	target.SetUint(i)
	return nil
}

// seedFlag is an int64 flag that remembers whether it was given, so that zero
// is a usable seed
type seedFlag struct {
	value int64
	set   bool
}

func (s *seedFlag) Decode(ctx *kong.DecodeContext) error {
	var value string
	if err := ctx.Scan.PopValueInto("seed", &value); err != nil {
		return err
	}
	i, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return err
	}
	s.value, s.set = i, true
	return nil
}
