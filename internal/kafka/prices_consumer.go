package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-monitor/internal/currency"
	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// PriceRepository defines the database operations the prices consumer needs
type PriceRepository interface {
	UpsertPrice(ctx context.Context, p *models.Price) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// PricesConsumer stores daily closes published on the prices topic
type PricesConsumer struct {
	reader messageReader
	repo   PriceRepository
	log    zerolog.Logger
}

// NewPricesConsumer creates a new Kafka consumer for daily price events
func NewPricesConsumer(brokers []string, topic, groupID string, repo PriceRepository, log zerolog.Logger) *PricesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &PricesConsumer{
		reader: reader,
		repo:   repo,
		log:    log.With().Str("component", "prices-consumer").Logger(),
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *PricesConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka prices consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka prices consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("Error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *PricesConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	if event.EventType != models.EventPriceClosed {
		c.log.Debug().Str("event_type", event.EventType).Msg("Ignoring event")
		return nil
	}

	price, err := convertEventToPrice(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert price event: %w", err)
	}

	if err := c.repo.UpsertPrice(ctx, price); err != nil {
		if errors.Is(err, database.ErrForeignKey) {
			c.log.Debug().Str("ticker", price.CompanyTicker).Msg("Skipping price for unknown company")
			return nil
		}
		return fmt.Errorf("failed to save price: %w", err)
	}

	c.log.Debug().
		Str("ticker", price.CompanyTicker).
		Str("date", event.Data.Date).
		Str("close", price.Close.String()).
		Msg("Saved daily close")
	return nil
}

// convertEventToPrice maps the string payload of a price event to a Price
func convertEventToPrice(data models.PriceEventData) (*models.Price, error) {
	ticker := strings.ToUpper(strings.TrimSpace(data.Ticker))
	if ticker == "" || len(ticker) > models.MaxTickerLength {
		return nil, fmt.Errorf("invalid ticker %q", data.Ticker)
	}

	date, err := time.Parse(models.DateLayout, data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %s: %w", data.Date, err)
	}

	closePrice, err := decimal.NewFromString(data.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close %s: %w", data.Close, err)
	}
	if err := models.CheckAmount(closePrice); err != nil {
		return nil, fmt.Errorf("invalid close %s: %w", data.Close, err)
	}

	code := "USD"
	if data.Currency != "" {
		if code, err = currency.Default.Resolve(data.Currency); err != nil {
			return nil, fmt.Errorf("invalid currency %s: %w", data.Currency, err)
		}
	}

	return &models.Price{
		CompanyTicker: ticker,
		MarketDate:    date,
		Close:         closePrice,
		Currency:      code,
	}, nil
}

// Close closes the Kafka consumer
func (c *PricesConsumer) Close() error {
	return c.reader.Close()
}
