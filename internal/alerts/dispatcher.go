package alerts

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"mint-watch/internal/domain"
	"mint-watch/internal/observability"
	"mint-watch/internal/risk"
)

// Outcome is the result of one dispatch decision.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Threshold is compared strictly: score > Threshold alerts.
	// Zero takes risk.DefaultThreshold.
	Threshold    float64
	ExplorerBase string
	Logger       logrus.FieldLogger
	Metrics      *observability.Metrics
}

// Dispatcher gates alerts on score and hands them to a Sender.
// Delivery is attempted once; failures are logged, never retried.
type Dispatcher struct {
	sender    Sender
	threshold float64
	formatter *Formatter
	log       logrus.FieldLogger
	metrics   *observability.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, opts DispatcherOptions) *Dispatcher {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.Threshold == 0 {
		opts.Threshold = risk.DefaultThreshold
	}
	return &Dispatcher{
		sender:    sender,
		threshold: opts.Threshold,
		formatter: NewFormatter(opts.ExplorerBase),
		log:       log.WithField("component", "alerts"),
		metrics:   opts.Metrics,
	}
}

// Dispatch sends msg when its score is above the threshold.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.AlertMessage) Outcome {
	fields := logrus.Fields{
		"mint":  msg.Candidate.Mint,
		"score": msg.Score,
		"tx":    msg.SourceEventID,
	}

	if !risk.Exceeds(msg.Score, d.threshold) {
		d.metrics.RecordAlert(string(OutcomeSuppressed))
		d.log.WithFields(fields).Info("Token found but score low")
		return OutcomeSuppressed
	}

	payload := &Payload{
		Message: msg,
		Text:    d.formatter.FormatText(msg),
		TxURL:   d.formatter.TxURL(msg.SourceEventID),
	}

	if err := d.sender.Send(ctx, payload); err != nil {
		d.metrics.RecordAlert(string(OutcomeFailed))
		d.log.WithError(err).WithFields(fields).Error("Alert send error")
		return OutcomeFailed
	}

	d.metrics.RecordAlert(string(OutcomeSent))
	d.log.WithFields(fields).Info("Alert sent")
	return OutcomeSent
}
