// Package events publishes reconciliation outcomes to NATS. Publishing is
// best-effort: a missing or failing broker is logged and ignored, never
// surfaced to the webhook caller.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	SubjectProductReconciled = "product.reconciled"
	SubjectProductDeleted    = "product.deleted"
)

// ProductReconciled is emitted after a successful mirror update and
// replica propagation.
type ProductReconciled struct {
	EventID     string    `json:"eventId"`
	ProductID   string    `json:"productId"`
	Storefronts []string  `json:"storefronts"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProductDeleted is emitted after the deletion cascade.
type ProductDeleted struct {
	EventID         string    `json:"eventId"`
	ProductID       string    `json:"productId"`
	ReplicasDeleted int       `json:"replicasDeleted"`
	VariantsDeleted int       `json:"variantsDeleted"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher sends events to NATS. A nil Publisher or one built without a
// connection silently drops everything.
type Publisher struct {
	conn *nats.Conn
	log  *logrus.Entry
}

// NewPublisher creates a publisher over an existing connection, which may
// be nil when NATS is not configured.
func NewPublisher(conn *nats.Conn, log *logrus.Entry) *Publisher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{conn: conn, log: log}
}

// PublishReconciled emits product.reconciled asynchronously.
func (p *Publisher) PublishReconciled(productID string, storefronts []string) {
	p.publish(SubjectProductReconciled, ProductReconciled{
		EventID:     uuid.NewString(),
		ProductID:   productID,
		Storefronts: storefronts,
		Timestamp:   time.Now(),
	})
}

// PublishDeleted emits product.deleted asynchronously.
func (p *Publisher) PublishDeleted(productID string, replicasDeleted, variantsDeleted int) {
	p.publish(SubjectProductDeleted, ProductDeleted{
		EventID:         uuid.NewString(),
		ProductID:       productID,
		ReplicasDeleted: replicasDeleted,
		VariantsDeleted: variantsDeleted,
		Timestamp:       time.Now(),
	})
}

func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	go func() {
		data, err := json.Marshal(event)
		if err != nil {
			p.log.WithError(err).WithField("subject", subject).Warn("failed to encode event")
			return
		}
		if err := p.conn.Publish(subject, data); err != nil {
			p.log.WithError(err).WithField("subject", subject).Warn("failed to publish event")
			return
		}
		p.log.WithField("subject", subject).Debug("event published")
	}()
}
