package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/m4n5ter/ownership-cache-killer/classifier"
	"github.com/m4n5ter/ownership-cache-killer/compliance"
	"github.com/m4n5ter/ownership-cache-killer/ledger"
	"github.com/m4n5ter/ownership-cache-killer/metrics"
	"github.com/m4n5ter/ownership-cache-killer/notification"
)

// CachePurger removes a customer's cached ownership data.
type CachePurger interface {
	DeleteFromCache(ctx context.Context, customerID string) error
}

// StatusReporter delivers deletion statuses to the compliance authority.
type StatusReporter interface {
	ReportDeleteStatus(ctx context.Context, caseID, requestType, serviceName string, status compliance.Status) error
	ReportNotificationStatus(ctx context.Context, n notification.Notification, serviceName string, status compliance.Status) error
}

// SingleEventReport is the identity used when reporting purges of the single-event path,
// whose requests carry nothing but a customer id. An empty CaseID reports under the customer id.
type SingleEventReport struct {
	CaseID      string
	RequestType string
}

type Outcome int

const (
	OutcomeMalformed Outcome = iota
	OutcomeUnsupported
	OutcomeDone
	OutcomeNotDone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeDone:
		return "done"
	case OutcomeNotDone:
		return "not_done"
	default:
		return "malformed"
	}
}

// Result describes how a single message was handled.
// Reported is false when no status was due or when reporting failed.
type Result struct {
	Outcome  Outcome
	Reported bool
}

var errUnsupported = errors.New("unsupported notification")

type Processor struct {
	purger      CachePurger
	reporter    StatusReporter
	serviceName string
	single      SingleEventReport
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	gaps        *ledger.Ledger
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLedger records every status report that could not be delivered.
func WithLedger(l *ledger.Ledger) Option {
	return func(p *Processor) { p.gaps = l }
}

// WithConcurrency bounds how many messages of a batch are handled at once.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithServiceName(name string) Option {
	return func(p *Processor) { p.serviceName = name }
}

func WithSingleEventReport(r SingleEventReport) Option {
	return func(p *Processor) { p.single = r }
}

func New(purger CachePurger, reporter StatusReporter, opts ...Option) (*Processor, error) {
	if purger == nil {
		return nil, errors.New("cache purger is required")
	}
	if reporter == nil {
		return nil, errors.New("status reporter is required")
	}

	p := &Processor{
		purger:      purger,
		reporter:    reporter,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.serviceName == "" {
		return nil, errors.New("service name is required")
	}
	if p.single.RequestType == "" {
		p.single.RequestType = string(notification.TypeDelete)
	}
	return p, nil
}

// HandleBatch handles every message independently. A failing message never stops its
// siblings; once ctx is done no further message is started.
func (p *Processor) HandleBatch(ctx context.Context, raws [][]byte) {
	logger := p.logger.With("batch_id", uuid.NewString())
	logger.Debug("Handling batch", "size", len(raws))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, raw := range raws {
		if ctx.Err() != nil {
			logger.Warn("Batch cancelled, leaving messages unprocessed", "remaining", len(raws)-i, "error", ctx.Err())
			break
		}
		raw := raw
		g.Go(func() error {
			p.handleOne(ctx, logger, raw)
			return nil
		})
	}
	_ = g.Wait()
}

// HandleOne parses, classifies and executes a single notification.
func (p *Processor) HandleOne(ctx context.Context, raw []byte) Result {
	return p.handleOne(ctx, p.logger, raw)
}

func (p *Processor) handleOne(ctx context.Context, logger *slog.Logger, raw []byte) Result {
	n, err := notification.Parse(raw)
	if err != nil {
		p.metrics.IncrementMalformed()
		logger.Error("Failed to parse notification, dropping message", "error", err)
		return Result{Outcome: OutcomeMalformed}
	}

	logger = logger.With("notification_id", n.ID)
	decision := classifier.Classify(n)
	p.metrics.IncrementNotification(string(n.Type), decision.Action.String())

	status, err := p.execute(ctx, logger, n, decision)
	if errors.Is(err, errUnsupported) {
		logger.Warn("Unsupported notification, nothing reported",
			"account_identifier", n.AccountIdentifier,
			"notification_type", n.Type,
		)
		return Result{Outcome: OutcomeUnsupported}
	}

	reported := p.reportNotification(ctx, logger, n, status)
	return Result{Outcome: outcomeOf(status), Reported: reported}
}

// execute maps every decision to exactly one of DONE, NOT_DONE or errUnsupported.
func (p *Processor) execute(ctx context.Context, logger *slog.Logger, n notification.Notification, d classifier.Decision) (compliance.Status, error) {
	switch d.Action {
	case classifier.SkipWithSuccess:
		return compliance.StatusDone, nil
	case classifier.PurgeThenReport:
		if err := p.purge(ctx, d.AccountIdentifier); err != nil {
			logger.Error("Failed to purge ownership cache",
				"account_identifier", d.AccountIdentifier,
				"error", err,
			)
			return compliance.StatusNotDone, nil
		}
		return compliance.StatusDone, nil
	default:
		return "", errUnsupported
	}
}

// HandleSingle handles a single-event deletion request. It always purges and
// only returns an error when the request itself is invalid.
func (p *Processor) HandleSingle(ctx context.Context, raw []byte) error {
	customerID, err := notification.ParseCustomerID(raw)
	if err != nil {
		return err
	}
	return p.PurgeCustomer(ctx, customerID)
}

// PurgeCustomer unconditionally purges the customer and reports DONE or NOT_DONE.
func (p *Processor) PurgeCustomer(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return &notification.ValidationError{Reason: "missing customerId"}
	}

	logger := p.logger.With("customer_id", customerID)
	status := compliance.StatusDone
	if err := p.purge(ctx, customerID); err != nil {
		logger.Error("Failed to purge ownership cache", "error", err)
		status = compliance.StatusNotDone
	}

	caseID := p.single.CaseID
	if caseID == "" {
		caseID = customerID
	}
	p.report(logger, caseID, customerID, status, func() error {
		return p.reporter.ReportDeleteStatus(ctx, caseID, p.single.RequestType, p.serviceName, status)
	})
	return nil
}

func (p *Processor) purge(ctx context.Context, customerID string) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("purge panicked: %v", r)
		}
		p.metrics.ObservePurge(err, time.Since(start))
	}()
	return p.purger.DeleteFromCache(ctx, customerID)
}

func (p *Processor) reportNotification(ctx context.Context, logger *slog.Logger, n notification.Notification, status compliance.Status) bool {
	return p.report(logger, n.ID, n.AccountIdentifier, status, func() error {
		return p.reporter.ReportNotificationStatus(ctx, n, p.serviceName, status)
	})
}

// report never propagates a failure and never retries. A lost report is the one
// outcome nothing else recovers from, so it is logged as CRITICAL and kept in the ledger.
func (p *Processor) report(logger *slog.Logger, caseID, accountIdentifier string, status compliance.Status, send func() error) (ok bool) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("report panicked: %v", r)
			}
		}()
		return send()
	}()

	p.metrics.IncrementReport(string(status), err != nil)
	if err != nil {
		logger.Error("CRITICAL: failed to report deletion status",
			"case_id", caseID,
			"account_identifier", accountIdentifier,
			"status", status,
			"error", err,
		)
		if p.gaps != nil {
			p.gaps.Record(caseID, accountIdentifier, string(status), err)
		}
		return false
	}

	logger.Info("Reported deletion status", "case_id", caseID, "status", status)
	return true
}

func outcomeOf(status compliance.Status) Outcome {
	if status == compliance.StatusDone {
		return OutcomeDone
	}
	return OutcomeNotDone
}
