package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// SubjectPrefix is prepended to every change subject
const SubjectPrefix = "govsync.proposals"

// Subject returns the subject a proposal's changes are published on
func Subject(network string, id models.ProposalID) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, network, id)
}

// ChangeMessage is the payload published for every record change
type ChangeMessage struct {
	Network   string                 `json:"network"`
	Session   string                 `json:"session"`
	Proposal  *models.ProposalRecord `json:"proposal"`
	Published time.Time              `json:"published"`
}

// Publisher forwards record changes to NATS
type Publisher struct {
	conn    *nats.Conn
	network string
	session string
	log     *slog.Logger
}

// Connect dials the NATS server at url
func Connect(url, network, session string, log *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("govsync"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Publisher{conn: conn, network: network, session: session, log: log.With("component", "NATSPublisher")}, nil
}

// PublishChange publishes a change message for record
func (p *Publisher) PublishChange(ctx context.Context, record *models.ProposalRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ChangeMessage{
		Network:   p.network,
		Session:   p.session,
		Proposal:  record,
		Published: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	subject := Subject(p.network, record.ID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.log.Debug("published change", "subject", subject, "state", record.State)
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		p.log.Debug("flush before close failed", "error", err)
	}
	p.conn.Close()
	return nil
}

// Ensure the adapter implements the interface
var _ usecase.ChangePublisher = (*Publisher)(nil)
