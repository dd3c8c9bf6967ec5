package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/reactorgraph/reactor/reactor"
)

const cyclesFlag = "cycles"

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "time repeated write-then-drain cycles against a graph with several observers",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  cyclesFlag,
				Usage: "number of write-drain cycles to run",
				Value: 10_000,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runBench(int(cmd.Uint(cyclesFlag)))
		},
	}
}

// runBench mirrors the teacher's cmd/benchmark/main.go: tachymeter
// times each cycle and go-pretty/v6/table renders the percentile
// report (§10.3 of SPEC_FULL.md).
func runBench(cycles int) error {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &struct{ Value int }{})
	if err != nil {
		return err
	}

	const observerCount = 8
	observers := make([]*reactor.Observer, observerCount)
	for i := range observers {
		o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
			return r.Get("Value")
		})
		if err != nil {
			return err
		}
		if err := o.Start(); err != nil {
			return err
		}
		observers[i] = o
	}

	t := tachymeter.New(&tachymeter.Config{Size: cycles})
	start := time.Now()
	for i := 0; i < cycles; i++ {
		cycleStart := time.Now()
		if err := r.Set("Value", i); err != nil {
			return err
		}
		t.AddTime(time.Since(cycleStart))
	}
	elapsed := time.Since(start)

	metrics := t.Calc()

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"metric", "value"})
	tw.AppendRows([]table.Row{
		{"cycles", humanize.Comma(int64(cycles))},
		{"observers per cell", observerCount},
		{"total", elapsed},
		{"p50", metrics.Time.P50},
		{"p95", metrics.Time.P95},
		{"p99", metrics.Time.P99},
		{"max", metrics.Time.Max},
		{"rate", fmt.Sprintf("%s cycles/sec", humanize.Comma(int64(float64(cycles)/elapsed.Seconds())))},
	})
	tw.Render()

	for _, o := range observers {
		o.Stop()
	}
	return nil
}
