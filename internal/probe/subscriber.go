package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"MemSpectra/internal/config"
	"MemSpectra/internal/wire"
)

// ChunkHandler is a function that processes one received snapshot chunk.
type ChunkHandler func(timestamp int64, payload []byte)

// Subscriber is responsible for subscribing to a NATS subject and feeding
// decoded chunk envelopes to a handler. The handler runs synchronously in
// delivery order: the importer requires its feed to stay timestamp-sorted.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and starts processing messages
// with the provided handler.
func (s *Subscriber) Start(handler ChunkHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		chunk, err := wire.UnmarshalChunk(msg.Data)
		if err != nil {
			log.Printf("Error unmarshalling chunk envelope: %v", err)
			return
		}
		handler(chunk.Timestamp, chunk.Payload)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for snapshot chunks...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
