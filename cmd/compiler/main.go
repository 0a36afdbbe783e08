// Command compiler implements the CLI contract of spec §6: it compiles a
// single MiniJava-subset source file (or stdin) down to a bytecode
// container plus three Graphviz dumps, written under output/.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"minij/internal/driver"
)

func main() {
	app := cli.NewApp()
	app.Name = "compiler"
	app.Usage = "compile a MiniJava-subset source file to bytecode"
	app.ArgsUsage = "[source.java]"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "output, o", Value: "output", Usage: "output directory"},
		cli.BoolFlag{Name: "verbose, v", Usage: "log each pipeline stage"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFromErr(err))
	}
}

// cliExitError lets Action report a precise spec §6 exit code without
// urfave/cli's own defaulting to 1 for any non-nil error.
type cliExitError struct {
	code int
	err  error
}

func (e *cliExitError) Error() string { return e.err.Error() }
func (e *cliExitError) ExitCode() int { return e.code }

func exitFromErr(err error) int {
	if ec, ok := err.(*cliExitError); ok {
		return ec.code
	}
	return 1
}

func run(c *cli.Context) error {
	logger := zap.NewNop()
	if c.Bool("verbose") {
		l, _ := zap.NewDevelopment()
		logger = l
	}
	defer logger.Sync()

	path := c.Args().First()
	source, err := driver.ReadSource(path)
	if err != nil {
		return &cliExitError{code: 1, err: err}
	}

	result, exitCode := driver.Compile(source, logger)
	if exitCode != driver.ExitSuccess {
		return &cliExitError{code: int(exitCode), err: fmt.Errorf("compilation failed")}
	}

	if err := driver.WriteOutputs(c.String("output"), result); err != nil {
		return &cliExitError{code: 1, err: err}
	}
	fmt.Printf("compiled %s to %s/prog.bc (%s)\n", sourceLabel(path), c.String("output"), humanize.Bytes(uint64(len(result.Bytecode))))
	return nil
}

func sourceLabel(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}
