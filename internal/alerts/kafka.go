package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// alertEnvelopeType tags alert records on the topic.
const alertEnvelopeType = "token_alert"

// Envelope wraps every record published to Kafka.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// kafkaAlert is the JSON shape of an alert record.
type kafkaAlert struct {
	AlertID          string  `json:"alert_id"`
	Mint             string  `json:"mint"`
	Signature        string  `json:"signature"`
	Supply           float64 `json:"supply"`
	TopHolderShare   float64 `json:"top1_pct"`
	Top10HolderShare float64 `json:"top10_pct"`
	Score            float64 `json:"risk_score"`
	Name             string  `json:"name,omitempty"`
	Symbol           string  `json:"symbol,omitempty"`
	TxURL            string  `json:"tx_url"`
	DetectedAt       int64   `json:"detected_at"`
}

// KafkaSender publishes alerts to a Kafka topic, keyed by alert id.
type KafkaSender struct {
	topic string
	p     sarama.SyncProducer
}

// NewKafkaSender connects a sync producer to brokers.
func NewKafkaSender(brokers []string, topic string, cfg *sarama.Config) (*KafkaSender, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaSender{topic: topic, p: p}, nil
}

// NewKafkaSenderWithProducer wraps an existing producer.
func NewKafkaSenderWithProducer(p sarama.SyncProducer, topic string) *KafkaSender {
	return &KafkaSender{topic: topic, p: p}
}

// Close closes the producer.
func (s *KafkaSender) Close() error {
	if s.p != nil {
		return s.p.Close()
	}
	return nil
}

// Send publishes one alert record. SyncProducer does not take a context.
func (s *KafkaSender) Send(_ context.Context, payload *Payload) error {
	msg := payload.Message

	data, err := json.Marshal(kafkaAlert{
		AlertID:          msg.AlertID,
		Mint:             msg.Candidate.Mint,
		Signature:        msg.SourceEventID,
		Supply:           msg.Enrichment.Supply,
		TopHolderShare:   msg.Enrichment.TopHolderShare,
		Top10HolderShare: msg.Enrichment.Top10HolderShare,
		Score:            msg.Score,
		Name:             msg.Enrichment.Name,
		Symbol:           msg.Enrichment.Symbol,
		TxURL:            payload.TxURL,
		DetectedAt:       msg.DetectedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	b, err := json.Marshal(Envelope{
		Type: alertEnvelopeType,
		TS:   time.Now().UnixMilli(),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_, _, err = s.p.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(msg.AlertID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("kafka send failed: %w", err)
	}
	return nil
}
