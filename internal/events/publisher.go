// Package events publishes permission.submitted messages to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"permissiondesk/internal/permission"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON body of a permission.submitted event.
type Message struct {
	ID               string `json:"id"`
	RollNumber       string `json:"rollno"`
	Branch           string `json:"branch"`
	Reason           string `json:"reason"`
	Email            string `json:"email"`
	SubmittedAt      string `json:"submitted_at"`
	SubmittedDisplay string `json:"submitted_display"`
}

// Publisher implements permission.Publisher on a Kafka topic.
type Publisher struct {
	w   messageWriter
	loc *time.Location
	log zerolog.Logger
}

var _ permission.Publisher = (*Publisher)(nil)

// New returns a publisher writing to topic, or nil when brokers is empty.
func New(brokers []string, topic string, loc *time.Location, log zerolog.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
		Async:        false,
	}
	return newPublisher(w, loc, log)
}

func newPublisher(w messageWriter, loc *time.Location, log zerolog.Logger) *Publisher {
	if loc == nil {
		loc = time.Local
	}
	return &Publisher{w: w, loc: loc, log: log.With().Str("component", "kafka-publisher").Logger()}
}

func (p *Publisher) PublishSubmitted(ctx context.Context, ev permission.Submitted) error {
	msg, err := encode(ev, p.loc)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	p.log.Debug().Str("id", ev.ID).Str("rollno", ev.RollNumber).Msg("published submitted event")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}

func encode(ev permission.Submitted, loc *time.Location) (kafka.Message, error) {
	at := ev.SubmittedAt.In(loc)
	body, err := json.Marshal(Message{
		ID:               ev.ID,
		RollNumber:       ev.RollNumber,
		Branch:           ev.Branch,
		Reason:           ev.Reason,
		Email:            ev.Email,
		SubmittedAt:      at.Format(time.RFC3339),
		SubmittedDisplay: at.Format(permission.DisplayLayout),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode submitted event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.RollNumber),
		Value: body,
		Time:  ev.SubmittedAt,
	}, nil
}
