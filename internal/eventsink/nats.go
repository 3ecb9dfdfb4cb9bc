package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes dispatcher events to JetStream, one stream per subject.
// Dashboards and the event-log consumer subscribe on the other side.
type NATSSink struct {
	nats           *nats.Conn
	jetStream      nats.JetStreamContext
	subscriptions  []*nats.Subscription
	createdStreams map[string]bool
}

func NewNATSSink(natsURL string) (*NATSSink, error) {
	nc, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %v", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	sink := &NATSSink{
		nats:           nc,
		jetStream:      js,
		createdStreams: make(map[string]bool),
	}

	log.Printf("Connected to NATS at %s", natsURL)
	return sink, nil
}

func (s *NATSSink) ensureStreamForSubject(subject string) error {
	if s.createdStreams[subject] {
		return nil
	}

	_, err := s.jetStream.StreamInfo(subject)
	if err != nil {
		streamConfig := &nats.StreamConfig{
			Name:       subject,
			Subjects:   []string{subject},
			Retention:  nats.LimitsPolicy,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
			MaxAge:     24 * time.Hour,
		}

		_, err = s.jetStream.AddStream(streamConfig)
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", subject, err)
		}
		log.Printf("Created JetStream stream: %s", subject)
	}

	s.createdStreams[subject] = true
	return nil
}

// Emit publishes the event. Any failure is logged and swallowed: the event
// trail is observability, it never blocks or fails dispatch.
func (s *NATSSink) Emit(event Event) {
	subject := event.Subject()

	if err := s.ensureStreamForSubject(subject); err != nil {
		log.Printf("EventSink: failed to ensure stream for %s: %v", subject, err)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("EventSink: failed to marshal %s event: %v", subject, err)
		return
	}

	if _, err := s.jetStream.PublishAsync(subject, data); err != nil {
		log.Printf("EventSink: failed to publish event to %s: %v", subject, err)
	}
}

// Subscribe attaches a durable queue consumer to one event subject. Used by
// the dashboard feed, not by the dispatcher itself.
func (s *NATSSink) Subscribe(subject, queue string, handler EventHandler) error {
	if err := s.ensureStreamForSubject(subject); err != nil {
		return err
	}

	consumerName := fmt.Sprintf("%s-consumer", queue)

	sub, err := s.jetStream.QueueSubscribe(subject, queue,
		func(msg *nats.Msg) {
			handler(context.Background(), msg.Data)
			msg.Ack()
		},
		nats.Durable(consumerName),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
	)

	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subscriptions = append(s.subscriptions, sub)

	log.Printf("EventSink: Subscribed to %s with queue %s", subject, queue)
	return nil
}

func (s *NATSSink) Close() error {
	log.Println("Closing EventSink connections...")

	for _, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing: %v", err)
		}
	}

	if s.nats != nil {
		s.nats.Close()
	}

	log.Println("EventSink closed")
	return nil
}

func (s *NATSSink) IsConnected() bool {
	return s.nats != nil && s.nats.IsConnected()
}
