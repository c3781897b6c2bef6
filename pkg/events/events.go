package events

import (
	"context"
	"time"
)

const (
	TypePollCreated = "poll.created"
	TypePollClosed  = "poll.closed"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type PollCreatedPayload struct {
	PollID       string `json:"poll_id"`
	FreeResponse bool   `json:"free_response"`
	Responses    int    `json:"responses"`
}

type PollClosedPayload struct {
	PollID       string `json:"poll_id"`
	FreeResponse bool   `json:"free_response"`
	Count        int    `json:"count"`
}

// PollChannel is the pub/sub channel carrying one poll's lifecycle events.
func PollChannel(pollID string) string {
	return "polls:" + pollID
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UnixMilli()}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
