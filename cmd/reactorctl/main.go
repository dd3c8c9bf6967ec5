// Command reactorctl exercises the reactor package end to end: demo
// runs the basic-propagation and batching scenarios against a live
// ReactiveContext, bench
// times drain cycles under load, inspect dumps the live cell-registry
// graph, and codegen emits typed accessor wrappers for a struct shape.
// The command layout follows the teacher's cmd/codegen/main.go: a
// single urfave/cli/v3 root command, flags with defaults, log.Fatal on
// error.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "reactorctl",
		Usage: "exercise and inspect the transparent reactive object graph",
		Commands: []*cli.Command{
			demoCommand(),
			benchCommand(),
			inspectCommand(),
			codegenCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
