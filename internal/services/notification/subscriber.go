package notification

import (
	"context"
	"fmt"
	"io"

	"mcpizza/internal/logger"
	"mcpizza/internal/messaging"
	"mcpizza/internal/models"
)

// EventSource delivers raw messages to a handler until ctx ends
type EventSource interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints order events published by MCP servers
type Subscriber struct {
	consumer EventSource
	logger   *logger.Logger
	out      io.Writer
}

// NewSubscriber creates a new order event subscriber
func NewSubscriber(consumer EventSource, log *logger.Logger, out io.Writer) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      out,
	}
}

// Start consumes events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Order event listener started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.HandleEvent)

	s.logger.Info("graceful_shutdown", "Stopping order event listener", requestID, nil)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// HandleEvent decodes one event and prints it
func (s *Subscriber) HandleEvent(ctx context.Context, body []byte) error {
	var event models.OrderEventMessage
	if err := messaging.ParseMessage(body, &event); err != nil {
		return fmt.Errorf("%w: failed to parse order event: %v", messaging.ErrPoisonMessage, err)
	}

	s.logger.Debug("event_received", "Received order event", logger.RequestID(ctx), map[string]interface{}{
		"event":      string(event.Event),
		"session_id": event.SessionID,
		"store_id":   event.StoreID,
	})

	fmt.Fprintln(s.out, FormatEvent(&event))
	return nil
}

// FormatEvent renders an event as one human readable line
func FormatEvent(event *models.OrderEventMessage) string {
	timestamp := event.Timestamp.Format("2006-01-02 15:04:05")

	var message string
	switch event.Event {
	case models.EventItemAdded:
		message = fmt.Sprintf("Session %s added %dx %s (%d items in cart)",
			event.SessionID, event.Quantity, event.ItemCode, event.ItemCount)
	case models.EventCustomerSet:
		message = fmt.Sprintf("Session %s set delivery details", event.SessionID)
	case models.EventCouponApplied:
		message = fmt.Sprintf("Session %s applied a coupon", event.SessionID)
	case models.EventOrderPreview:
		message = fmt.Sprintf("Session %s previewed an order of %d items totalling %s",
			event.SessionID, event.ItemCount, event.Total)
	default:
		message = fmt.Sprintf("Session %s sent %s", event.SessionID, event.Event)
	}

	if event.StoreID != "" {
		message += fmt.Sprintf(" at store %s", event.StoreID)
	}
	return fmt.Sprintf("[%s] %s [%s]", timestamp, message, event.Source)
}
