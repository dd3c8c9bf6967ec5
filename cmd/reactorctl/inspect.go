package main

import (
	"context"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/reactorgraph/reactor/reactor"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "build a small graph and dump its cell registry as a table",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runInspect()
		},
	}
}

type ledger struct {
	Owner   string
	Balance int
	Tags    []string
}

// runInspect wires a few observers against a *ledger and prints the
// resulting cell/subscriber table with tablewriter, the way the
// teacher's inspection tooling renders signal graphs.
func runInspect() error {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &ledger{Owner: "ada", Balance: 100, Tags: []string{"vip"}})
	if err != nil {
		return err
	}

	balanceObserver, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		return r.Get("Balance")
	})
	if err != nil {
		return err
	}
	if err := balanceObserver.Start(); err != nil {
		return err
	}
	defer balanceObserver.Stop()

	presenceObserver, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		return r.Has("Owner"), nil
	})
	if err != nil {
		return err
	}
	if err := presenceObserver.Start(); err != nil {
		return err
	}
	defer presenceObserver.Stop()

	shapeObserver, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		return r.OwnKeys(), nil
	})
	if err != nil {
		return err
	}
	if err := shapeObserver.Start(); err != nil {
		return err
	}
	defer shapeObserver.Stop()

	rows := reactor.InspectCells(rc)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"cell", "kind", "subscribers"})
	for _, row := range rows {
		tw.Append([]string{row.Label, row.Kind, humanizeCount(row.Subscribers)})
	}
	tw.Render()
	return nil
}

func humanizeCount(n int) string {
	if n == 1 {
		return "1 observer"
	}
	return strconv.Itoa(n) + " observers"
}
