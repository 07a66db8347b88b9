package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// EventSender writes one keyed event to the bus
type EventSender interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing billing events through a circuit breaker
type EventPublisher struct {
	sender  EventSender
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sender EventSender) *EventPublisher {
	logger := util.GetLogger()
	const name = "kafka-publisher"

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			util.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("circuit", cbName),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	util.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &EventPublisher{sender: sender, breaker: breaker, logger: logger}
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// State reports the breaker state guarding the bus
func (ep *EventPublisher) State() gobreaker.State {
	return ep.breaker.State()
}

func (ep *EventPublisher) publish(ctx context.Context, eventType, key string, event interface{}) error {
	_, err := ep.breaker.Execute(func() (interface{}, error) {
		return nil, ep.sender.PublishEvent(ctx, key, event)
	})
	if err != nil {
		util.CircuitBreakerFailures.WithLabelValues(ep.breaker.Name()).Inc()
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("publish %s skipped, circuit breaker %s: %w", eventType, ep.breaker.Name(), err)
		}
		return err
	}
	return nil
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishPaymentCompleted publishes PaymentCompleted event
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	return ep.publish(ctx, event.EventType, orderKey(event.OrderID), event)
}

// PublishPaymentDeleted publishes PaymentDeleted event
func (ep *EventPublisher) PublishPaymentDeleted(ctx context.Context, event *models.PaymentDeletedEvent) error {
	return ep.publish(ctx, event.EventType, orderKey(event.OrderID), event)
}

// PublishGiftCardRedeemed publishes GiftCardRedeemed event
func (ep *EventPublisher) PublishGiftCardRedeemed(ctx context.Context, event *models.GiftCardRedeemedEvent) error {
	return ep.publish(ctx, event.EventType, fmt.Sprintf("gift-card-%d", event.GiftCardID), event)
}

// PublishOrderClosed publishes OrderClosed event
func (ep *EventPublisher) PublishOrderClosed(ctx context.Context, event *models.OrderClosedEvent) error {
	return ep.publish(ctx, event.EventType, orderKey(event.OrderID), event)
}

// PublishOrderRefunded publishes OrderRefunded event
func (ep *EventPublisher) PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error {
	return ep.publish(ctx, event.EventType, orderKey(event.OrderID), event)
}

// PublishRefundCreated publishes RefundCreated event
func (ep *EventPublisher) PublishRefundCreated(ctx context.Context, event *models.RefundCreatedEvent) error {
	return ep.publish(ctx, event.EventType, orderKey(event.OrderID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderClosed func(context.Context, *models.OrderClosedEvent) error
	logger        *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderClosed registers a handler for OrderClosed events
func (eh *EventHandler) OnOrderClosed(handler func(context.Context, *models.OrderClosedEvent) error) {
	eh.onOrderClosed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderClosed:
		if eh.onOrderClosed != nil {
			var event models.OrderClosedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderClosed event: %w", err)
			}
			return eh.onOrderClosed(ctx, &event)
		}
	}

	return nil
}
