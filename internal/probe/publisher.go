package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"MemSpectra/internal/config"
	"MemSpectra/internal/wire"
)

// Publisher is responsible for publishing snapshot chunks to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish wraps one snapshot chunk in its transport envelope and publishes
// it to the configured subject.
func (p *Publisher) Publish(timestamp int64, payload []byte) error {
	data := wire.MarshalChunk(&wire.Chunk{Timestamp: timestamp, Payload: payload})
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
