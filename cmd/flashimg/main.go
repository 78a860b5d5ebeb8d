package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/config"
	"github.com/synthread/go-flashimage/segment"
)

// Context is handed to every command's Run method
type Context struct {
	Out io.Writer

	configPath string
}

// layout returns the layout from the config file, or the built-in one
func (c *Context) layout() (segment.Layout, error) {
	if c.configPath == "" {
		return segment.DefaultLayout(), nil
	}
	return config.Load(c.configPath)
}

type cli struct {
	Config   string `optional short:"c" env:"FLASHIMG_CONFIG" help:"Layout file (YAML). The built-in triple-redundant layout is used when omitted."`
	LogLevel string `optional default:"info" enum:"trace,debug,info,warn,error" help:"Log verbosity."`

	Build   BuildCmd   `cmd help:"Compose a flash image from bootloader and application binaries."`
	Inject  InjectCmd  `cmd help:"Flip random bits in an image to exercise the checksums."`
	Verify  VerifyCmd  `cmd help:"Check an image the way the device does at boot."`
	Map     MapCmd     `cmd help:"Print the address map."`
	Program ProgramCmd `cmd help:"Write an image to a microcontroller through its UART bootloader."`
}

func newParser(c *cli) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("flashimg"),
		kong.Description("Compose and check redundant flash images."),
		kong.UsageOnError(),
		kong.NamedMapper("int", intMapper{}),
		kong.NamedMapper("addr", uint32Mapper{}))
}

func main() {
	var c cli
	k, err := newParser(&c)
	if err != nil {
		panic(err)
	}

	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)

	level, err := logrus.ParseLevel(c.LogLevel)
	ctx.FatalIfErrorf(err)
	logrus.SetLevel(level)

	err = ctx.Run(&Context{Out: os.Stdout, configPath: c.Config})
	ctx.FatalIfErrorf(err)
}
