package bus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	SubjectConnectionCreated = "dbstudio.connection.created"
	SubjectConnectionDeleted = "dbstudio.connection.deleted"
)

// ConnectionEvent is published when a saved connection changes. It never
// carries secrets.
type ConnectionEvent struct {
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name,omitempty"`
	Driver       string `json:"driver,omitempty"`
}

type Publisher struct {
	Conn *nats.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("dbstudio"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{Conn: conn}, nil
}

func (p *Publisher) Close() {
	if p.Conn != nil {
		_ = p.Conn.Drain()
		p.Conn.Close()
	}
}

func (p *Publisher) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	return p.Conn.Publish(subject, data)
}
