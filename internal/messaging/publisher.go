package messaging

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"omniscore/internal/infra"
	"omniscore/internal/library"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// LibraryPublisher forwards library changes to NATS subjects of the form
// "<prefix>.library.asset.added".
type LibraryPublisher struct {
	conn   Conn
	prefix string
	logger infra.Logger
}

func NewLibraryPublisher(conn Conn, prefix string, logger infra.Logger) *LibraryPublisher {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "omniscore"
	}
	return &LibraryPublisher{
		conn:   conn,
		prefix: prefix,
		logger: infra.Component(logger, "nats-publisher"),
	}
}

// Subject returns the subject an event type is published on.
func (p *LibraryPublisher) Subject(typ library.EventType) string {
	return p.prefix + ".library." + string(typ)
}

// Notify publishes the event. Failures are logged and dropped; the library
// never waits on messaging.
func (p *LibraryPublisher) Notify(_ context.Context, evt library.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error().Err(err).Msg("marshal library event")
		return
	}
	subject := p.Subject(evt.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Str("asset_id", evt.Asset.ID).Msg("publish library event failed")
		return
	}
	p.logger.Debug().Str("subject", subject).Str("asset_id", evt.Asset.ID).Msg("library event published")
}

var (
	_ library.Notifier = (*LibraryPublisher)(nil)
	_ Conn             = (*nats.Conn)(nil)
)
