package cron

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/m4n5ter/ownership-cache-killer/ledger"
)

type CronJob interface {
	// Start alerting on lost status reports in the background.
	Start() error

	// Stop the scheduler, flushing one last alert.
	Shutdown() error
}

type cron struct {
	gaps      *ledger.Ledger
	interval  time.Duration
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

func NewCron(gaps *ledger.Ledger, interval time.Duration, logger *slog.Logger) CronJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &cron{
		gaps:     gaps,
		interval: interval,
		logger:   logger,
	}
}

var _ CronJob = (*cron)(nil)

func (c *cron) Start() (err error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("Create a new scheduler: %w", err)
	}

	// Lost reports are never retried here, an operator has to reconcile them.
	_, err = s.NewJob(gocron.DurationJob(c.interval), gocron.NewTask(func() { c.alert() }))
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("Create a new job: %w", err)
	}

	c.scheduler = s
	s.Start()
	c.logger.Info("Alerting on lost status reports", "interval", c.interval)
	return nil
}

func (c *cron) Shutdown() error {
	if c.scheduler == nil {
		return nil
	}
	err := c.scheduler.Shutdown()
	c.alert()
	return err
}

// alert logs every lost status report and returns how many there were.
func (c *cron) alert() int {
	entries := c.gaps.Drain()
	for _, e := range entries {
		c.logger.Error("CRITICAL: deletion status never reached the compliance authority",
			"case_id", e.CaseID,
			"account_identifier", e.AccountIdentifier,
			"status", e.Status,
			"error", e.Err,
			"at", e.At,
		)
	}
	if len(entries) > 0 {
		c.logger.Error("Lost status reports need manual reconciliation", "count", len(entries))
	}
	return len(entries)
}
