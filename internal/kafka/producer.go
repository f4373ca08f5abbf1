package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishCompanyCreated publishes a company created event
func (p *Producer) PublishCompanyCreated(ctx context.Context, company *models.Company) error {
	event := models.CompanyEvent{
		EventType: models.EventCompanyCreated,
		Company:   company,
		Ticker:    company.Ticker,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, company.Ticker, event)
}

// PublishCompanyDeleted publishes a company deleted event
func (p *Producer) PublishCompanyDeleted(ctx context.Context, ticker string) error {
	event := models.CompanyEvent{
		EventType: models.EventCompanyDeleted,
		Ticker:    ticker,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, ticker, event)
}

// PublishPositionsImported publishes the summary of a committed import batch
func (p *Producer) PublishPositionsImported(ctx context.Context, event *models.ImportEvent) error {
	return p.publish(ctx, fmt.Sprintf("portfolio-%d", event.PortfolioID), event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
