// Command vm implements the CLI contract of spec §6: it runs a previously
// compiled bytecode container to completion, printing each PRINT opcode's
// operand to standard out.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"minij/internal/bytecode"
	"minij/internal/vm"
)

func main() {
	app := cli.NewApp()
	app.Name = "vm"
	app.Usage = "run a compiled MiniJava-subset bytecode program"
	app.ArgsUsage = "prog.bc"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "verbose, v", Usage: "log VM start/stop"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("usage: vm prog.bc")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	prog, err := bytecode.Deserialize(data)
	if err != nil {
		return errors.Wrap(err, "deserialising bytecode")
	}

	logger := zap.NewNop()
	if c.Bool("verbose") {
		l, _ := zap.NewDevelopment()
		logger = l
	}
	defer logger.Sync()

	machine := vm.New(prog, os.Stdout, logger)
	if err := machine.Run(); err != nil {
		return err
	}
	return nil
}
