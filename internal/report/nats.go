package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// Publisher is the part of *nats.Conn the NATS reporter needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON payload published for each generation.
type Event struct {
	RunID     string `json:"run_id"`
	Objective string `json:"objective"`
	optimization.Generation
	Timestamp time.Time `json:"timestamp"`
}

// NATS publishes every generation on "<subject>.<run id>".
type NATS struct {
	pub       Publisher
	subject   string
	runID     string
	objective string
	now       func() time.Time
}

// NewNATS returns a reporter publishing through pub.
func NewNATS(pub Publisher, subject, runID, objective string) *NATS {
	return &NATS{
		pub:       pub,
		subject:   subject + "." + runID,
		runID:     runID,
		objective: objective,
		now:       time.Now,
	}
}

// Subject returns the subject events are published on.
func (n *NATS) Subject() string { return n.subject }

// Report implements optimization.Reporter.
func (n *NATS) Report(_ context.Context, g optimization.Generation) error {
	data, err := json.Marshal(Event{
		RunID:      n.runID,
		Objective:  n.objective,
		Generation: g,
		Timestamp:  n.now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.pub.Publish(n.subject, data)
}

// ConnectNATS dials url, retrying forever on reconnect.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
