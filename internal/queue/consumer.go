package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Handler processes one confirmed booking. ctx carries the event's tenant.
type Handler func(ctx context.Context, ev BookingConfirmedEvent) error

// Consumer reads booking.confirmed and hands each event to a Handler.
type Consumer struct {
	url    string
	handle Handler
	log    *zap.Logger
}

func NewConsumer(url string, h Handler, log *zap.Logger) *Consumer {
	if h == nil {
		h = AuditHandler
	}
	return &Consumer{url: url, handle: h, log: log}
}

// Run keeps a consumer attached to the broker until ctx ends, reconnecting
// with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("booking-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("booking-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Deliver(ctx, d.Body); err != nil {
			c.log.Error("booking-consumer: handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Deliver decodes one message body, binds its tenant and runs the handler.
func (c *Consumer) Deliver(ctx context.Context, body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TenantID == 0 {
		return fmt.Errorf("booking %d: %w", ev.BookingID, tenant.ErrTenantNotFound)
	}
	ctx = tenant.WithID(ctx, tenant.ID(ev.TenantID))
	ctx = logger.WithContext(ctx, c.log.With(zap.Uint64("tenant_id", ev.TenantID)))
	return c.handle(ctx, ev)
}

// AuditHandler writes one structured line per confirmed booking.
func AuditHandler(ctx context.Context, ev BookingConfirmedEvent) error {
	logger.FromContext(ctx).Info("booking confirmed",
		zap.Uint64("booking_id", ev.BookingID),
		zap.Uint64("item_id", ev.ItemID),
		zap.Uint64("customer_id", ev.CustomerID),
		zap.String("invoice_number", ev.InvoiceNumber),
		zap.String("total", ev.Total),
		zap.String("currency", ev.Currency),
		zap.String("start_date", ev.StartDate),
		zap.String("end_date", ev.EndDate),
		zap.String("confirmed_at", ev.ConfirmedAt),
	)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
