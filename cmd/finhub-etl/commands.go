package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/finhub/internal/app"
	"github.com/bobmcallan/finhub/internal/services/datahub"
)

// commands lists every job command in registration order.
var commands = []subcommands.Command{
	&jobCmd{name: datahub.JobMaster, synopsis: "rebuilds the instrument master from fund profiles", jobs: []string{datahub.JobMaster}},
	&jobCmd{name: datahub.JobPrices, synopsis: "appends today's price batch for every held fund", jobs: []string{datahub.JobPrices}},
	&jobCmd{name: datahub.JobCrypto, synopsis: "refreshes the coin listing in EUR", jobs: []string{datahub.JobCrypto}},
	&jobCmd{name: datahub.JobLedger, synopsis: "merges the monthly ledger exports", jobs: []string{datahub.JobLedger}},
	&jobCmd{name: "all", synopsis: "runs master, prices, crypto and ledger in order", jobs: datahub.AllJobs},
}

// jobCmd runs one or more datahub jobs against the configured stage store.
type jobCmd struct {
	name     string
	synopsis string
	jobs     []string
	dryRun   bool
}

func (c *jobCmd) Name() string     { return c.name }
func (c *jobCmd) Synopsis() string { return c.synopsis }
func (c *jobCmd) Usage() string {
	return fmt.Sprintf(`%s [-n]

%s.
Exits non-zero on the first failing job; stage files of a failed job are
left untouched.
`, c.name, c.synopsis)
}

func (c *jobCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "print the jobs that would run and exit")
}

func (c *jobCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dryRun {
		for _, job := range c.jobs {
			fmt.Println(job)
		}
		return subcommands.ExitSuccess
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not initialize: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.Datahub().Run(ctx, c.jobs...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Finished %s, stage files in %s\n", c.name, a.Config.Storage.Path)
	return subcommands.ExitSuccess
}
