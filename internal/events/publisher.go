package events

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/nats-io/nats.go"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"go.uber.org/zap"
	"strings"
)

const DefaultSubjectPrefix = "storefront.checkout"

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

type publisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
}

func NewPublisher(conn Conn, prefix string, logger *zap.Logger) port.EventPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &publisher{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
	}
}

// Publish sends event on "<prefix>.<type>", e.g. storefront.checkout.order_placed.
func (p *publisher) Publish(ctx context.Context, event domain.CheckoutEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("conn.Publish: %w", err)
	}

	p.logger.Debug("Checkout event published", zap.String("subject", subject), zap.Stringer("order_id", event.OrderID))

	return nil
}

// Connect dials NATS and keeps reconnecting for the lifetime of the process.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("storefront"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}

	return nc, nil
}

type noop struct{}

// Noop discards events; used when no broker is configured.
func Noop() port.EventPublisher {
	return noop{}
}

func (noop) Publish(context.Context, domain.CheckoutEvent) error {
	return nil
}
