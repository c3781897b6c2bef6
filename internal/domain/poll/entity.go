package poll

import (
	"time"

	"github.com/google/uuid"
)

// Definition is a poll exactly as the moderator created it. It never changes.
type Definition struct {
	ID           uuid.UUID
	Question     string
	FreeResponse bool
	// Responses is set iff !FreeResponse.
	Responses []string
}

// Meta is the persisted poll_meta row.
type Meta struct {
	ID           uuid.UUID
	Question     string
	FreeResponse bool
	Ended        *time.Time
}

func (m Meta) Closed() bool {
	return m.Ended != nil
}

type CandidateResponse struct {
	PollID   uuid.UUID
	Idx      int
	Response string
}

// Selection holds exactly one of ResponseIdx or FreeText.
type Selection struct {
	ResponseIdx *int
	FreeText    *string
}

func IndexSelection(idx int) Selection {
	return Selection{ResponseIdx: &idx}
}

func FreeTextSelection(text string) Selection {
	return Selection{FreeText: &text}
}

func (s Selection) IsFreeText() bool {
	return s.FreeText != nil
}

type Vote struct {
	ID        uuid.UUID
	PollID    uuid.UUID
	Selection Selection
}

type CloseOutcome int

const (
	CloseOutcomeClosed CloseOutcome = iota
	CloseOutcomeAlreadyClosed
)

// Tally is derived from the vote rows of a closed poll and never persisted.
type Tally struct {
	Poll       Definition
	TotalVotes int
	// Counts is keyed by response index; set for indexed polls only.
	Counts map[int]int
	// ExportURL is set for free-response polls only.
	ExportURL string
}
