package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log logrus.FieldLogger
}

// NewLogSender creates a new log sender
func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the alert
func (s *LogSender) Send(_ context.Context, payload *Payload) error {
	msg := payload.Message
	s.log.WithFields(logrus.Fields{
		"alert_id":   msg.AlertID,
		"mint":       msg.Candidate.Mint,
		"supply":     msg.Enrichment.Supply,
		"top1_pct":   msg.Enrichment.TopHolderShare,
		"top10_pct":  msg.Enrichment.Top10HolderShare,
		"risk_score": msg.Score,
		"tx":         payload.TxURL,
	}).Info("Alert generated")
	return nil
}
