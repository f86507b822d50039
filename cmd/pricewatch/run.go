package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/schedule"
)

// Run executes the run command. It scrapes every product on the interval
// until the context is canceled, then waits for any scrape in progress.
func (c *RunCmd) Run(deps *Dependencies) error {
	interval, err := schedule.ParseInterval(c.Interval)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return pricewatch.Errorf(pricewatch.EINVALID, "%v", err)
	}

	job := func(ctx context.Context) error {
		report, err := deps.Scraper.RunBatch(ctx)
		if err != nil {
			return err
		}
		if deps.Reports != nil && report != nil {
			if err := deps.Reports.WriteReport(ctx, report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		return nil
	}

	opts := []schedule.Option{
		schedule.WithInterval(interval),
		schedule.WithLogger(deps.Logger),
	}
	if c.RunOnStart {
		opts = append(opts, schedule.WithRunOnStart())
	}
	s := schedule.New(job, opts...)

	if err := s.Start(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	fmt.Fprintf(deps.Stdout, "Scraping every %s. Press Ctrl+C to stop.\n", schedule.FormatInterval(interval))

	<-deps.Ctx.Done()

	fmt.Fprintln(deps.Stdout, "Stopping, waiting for scrape in progress...")
	s.Stop()

	status := s.Status()
	fmt.Fprintf(deps.Stdout, "Stopped after %d run(s), %d skipped.\n", status.Runs, status.Dropped)
	return nil
}
