package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/reactorgraph/reactor/cmd/reactorctl/templates"
)

const (
	packageKey    = "package"
	structKey     = "struct"
	fieldsKey     = "fields"
	outKey        = "out"
	reactorImport = "github.com/reactorgraph/reactor/reactor"
)

func codegenCommand() *cli.Command {
	return &cli.Command{
		Name:  "codegen",
		Usage: "emit typed accessor methods over a *reactor.Reactor for a fixed struct shape",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  packageKey,
				Usage: "package name for the generated file",
				Value: "main",
			},
			&cli.StringFlag{
				Name:     structKey,
				Usage:    "name of the struct type the accessors wrap",
				Required: true,
			},
			&cli.StringFlag{
				Name:     fieldsKey,
				Usage:    "comma-separated name:type pairs, e.g. Balance:int,Owner:string",
				Required: true,
			},
			&cli.StringFlag{
				Name:  outKey,
				Usage: "output file path",
				Value: "accessors_generated.go",
			},
		},
		Action: generateAccessors,
	}
}

func generateAccessors(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("codegen: accessor generation started")
	defer func() {
		log.Printf("codegen: accessor generation finished in %v", time.Since(start))
	}()

	fields, err := parseFields(cmd.String(fieldsKey))
	if err != nil {
		return err
	}

	contents := templates.AccessorGen(cmd.String(packageKey), reactorImport, cmd.String(structKey), fields)

	out := cmd.String(outKey)
	log.Printf("codegen: writing %s (%d fields) to %s", cmd.String(structKey), len(fields), out)
	return os.WriteFile(out, []byte(contents), 0644)
}

func parseFields(spec string) ([]templates.Field, error) {
	var fields []templates.Field
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, typ, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("codegen: malformed field spec %q, want name:type", pair)
		}
		fields = append(fields, templates.Field{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
	}
	return fields, nil
}
