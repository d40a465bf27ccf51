package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"alerts-service/internal/config"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/pipeline"
)

// projectEvent is the wire shape of domain events published by the rest
// of the platform.
type projectEvent struct {
	Event        string  `json:"event"`
	ProjectID    int64   `json:"project_id"`
	BudgetID     string  `json:"budget_id,omitempty"`
	BudgetAmount float64 `json:"budget_amount,omitempty"`
	SpentAmount  float64 `json:"spent_amount,omitempty"`
	LineID       string  `json:"line_id,omitempty"`
	ItemCode     string  `json:"item_code,omitempty"`
	PlannedQty   float64 `json:"planned_qty,omitempty"`
	ExecutedQty  float64 `json:"executed_qty,omitempty"`
}

// Consumer reads domain events and feeds them to the alert pipeline.
// One bad record is logged and skipped, never aborting the loop.
type Consumer struct {
	reader   *kafka.Reader
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
}

func NewConsumer(cfg config.Config, pl *pipeline.Pipeline, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, pipeline: pl, logger: logger}
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Infof("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}
		c.handle(ctx, msg.Value)
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) {
	var ev projectEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		c.logger.Errorf("Unmarshal message failed: %v", err)
		return
	}
	if ev.ProjectID == 0 {
		c.logger.Errorf("Invalid message: missing project_id")
		return
	}

	switch ev.Event {
	case "budget_updated":
		_, err := c.pipeline.HandleBudgetUpdate(ctx, models.BudgetSnapshot{
			ProjectID:    ev.ProjectID,
			BudgetID:     ev.BudgetID,
			BudgetAmount: ev.BudgetAmount,
			SpentAmount:  ev.SpentAmount,
		})
		if err != nil {
			c.logger.Errorf("Budget event for project %d failed: %v", ev.ProjectID, err)
		}
	case "quantity_updated":
		_, err := c.pipeline.HandleQuantityUpdate(ctx, models.VarianceSnapshot{
			ProjectID:   ev.ProjectID,
			LineID:      ev.LineID,
			ItemCode:    ev.ItemCode,
			PlannedQty:  ev.PlannedQty,
			ExecutedQty: ev.ExecutedQty,
		})
		if err != nil {
			c.logger.Errorf("Quantity event for project %d failed: %v", ev.ProjectID, err)
		}
	default:
		c.logger.Warnf("Skipping unknown event type %q", ev.Event)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
