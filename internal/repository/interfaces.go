package repository

import (
	"context"
	"iter"

	"pollbox/internal/domain/poll"

	"github.com/google/uuid"
)

// PollRepository persists polls and votes.
//
// CreatePoll writes the meta row and every candidate row atomically.
// TryClosePoll sets ended only when it is unset, so exactly one caller per
// poll observes poll.CloseOutcomeClosed. ScanVotes yields every vote of a
// poll page by page; the sequence can be ranged over once, and a non-nil
// error is always the last element yielded.
type PollRepository interface {
	CreatePoll(ctx context.Context, def poll.Definition) error
	TryClosePoll(ctx context.Context, id uuid.UUID) (poll.CloseOutcome, error)
	ReadPollMeta(ctx context.Context, id uuid.UUID) (poll.Meta, error)
	ReadPollResponses(ctx context.Context, id uuid.UUID) ([]poll.CandidateResponse, error)
	InsertVote(ctx context.Context, vote poll.Vote) (uuid.UUID, error)
	ScanVotes(ctx context.Context, pollID uuid.UUID) iter.Seq2[poll.Vote, error]
	Ping(ctx context.Context) error
}
