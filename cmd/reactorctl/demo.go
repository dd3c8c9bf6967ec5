package main

import (
	"context"
	"log"

	"github.com/urfave/cli/v3"

	"github.com/reactorgraph/reactor/reactor"
)

type account struct {
	Balance int
	Owner   string
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "run the basic-propagation and batching scenarios against a live graph",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runDemo()
		},
	}
}

func runDemo() error {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &account{Balance: 100, Owner: "ada"})
	if err != nil {
		return err
	}

	runs := 0
	o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		runs++
		balance, err := r.Get("Balance")
		if err != nil {
			return nil, err
		}
		log.Printf("demo: observer run #%d, Balance=%v", runs, balance)
		return balance, nil
	})
	if err != nil {
		return err
	}
	defer o.Stop()

	if err := o.Start(); err != nil {
		return err
	}

	log.Print("demo: single write")
	if err := r.Set("Balance", 150); err != nil {
		return err
	}

	log.Print("demo: batched writes coalesce into one re-run")
	if _, err := reactor.Batch(rc, func() (any, error) {
		for _, amount := range []int{200, 250, 300} {
			if err := r.Set("Balance", amount); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}); err != nil {
		return err
	}

	log.Printf("demo: finished after %d observer runs, final Balance=%v", runs, o.Value())
	return nil
}
