package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ehr/dashboard/internal/domain/records"
	"github.com/ehr/dashboard/internal/platform/selection"
)

// Event types.
const (
	EventSelectionChanged = "selection-changed"
	EventViewChanged      = "view-changed"
	EventDataChanged      = "data-changed"
)

// Forwarder publishes coordinator notifications to websocket clients.
type Forwarder struct {
	pub EventPublisher
	now func() time.Time
}

// NewForwarder returns a forwarder that publishes to pub.
func NewForwarder(pub EventPublisher) *Forwarder {
	return &Forwarder{pub: pub, now: time.Now}
}

// Attach registers the forwarder as a listener on all three coordinator
// channels.
func (f *Forwarder) Attach(c *selection.Coordinator) {
	c.OnSelectionChanged(f.SelectionChanged)
	c.OnViewChanged(f.ViewChanged)
	c.OnDataChanged(f.DataChanged)
}

func (f *Forwarder) SelectionChanged(patientID *int64) {
	f.publish(TopicSelection, EventSelectionChanged, struct {
		PatientID *int64 `json:"patientId"`
	}{patientID})
}

func (f *Forwarder) ViewChanged(view selection.ViewID) {
	f.publish(TopicView, EventViewChanged, struct {
		View selection.ViewID `json:"view"`
	}{view})
}

func (f *Forwarder) DataChanged(change records.Change) {
	f.publish(TopicData, EventDataChanged, change)
}

func (f *Forwarder) publish(topic, typ string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = f.pub.Publish(context.Background(), Event{
		Type:      typ,
		Topic:     topic,
		Timestamp: f.now().UTC(),
		Data:      data,
	})
}
