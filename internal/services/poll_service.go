package services

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"

	"pollbox/internal/domain/poll"
	"pollbox/internal/repository"
	"pollbox/internal/storage"
	"pollbox/internal/validation"
	pollbox_errors "pollbox/pkg/errors"
	"pollbox/pkg/events"
	"pollbox/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FreeResponseExporter writes a poll's free-text answers to durable storage.
type FreeResponseExporter interface {
	ExportFreeResponses(ctx context.Context, pollID uuid.UUID, answers iter.Seq2[string, error]) (storage.ExportResult, error)
}

var errExportNotConfigured = pollbox_errors.Storage("export free responses", errors.New("export storage not configured"))

type PollService struct {
	repo      repository.PollRepository
	tokens    *TokenCodec
	exporter  FreeResponseExporter
	publisher events.Publisher
	validator *validation.Validator
	logger    *logger.Logger
	maxSkew   time.Duration
	now       func() time.Time
}

// NewPollService wires the poll lifecycle. exporter may be nil, in which
// case closing a free-response poll fails with a storage error.
func NewPollService(repo repository.PollRepository, tokens *TokenCodec, exporter FreeResponseExporter, publisher events.Publisher, l *logger.Logger, maxSkew time.Duration) *PollService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &PollService{
		repo:      repo,
		tokens:    tokens,
		exporter:  exporter,
		publisher: publisher,
		validator: validation.New(),
		logger:    l,
		maxSkew:   maxSkew,
		now:       time.Now,
	}
}

type CreatePollInput struct {
	Question     string   `json:"question" validate:"required,min=8,max=500"`
	FreeResponse *bool    `json:"freeResponse" validate:"required"`
	Responses    []string `json:"responses" validate:"omitempty,dive,required,max=250"`
}

type CreatePollResult struct {
	PollToken  string
	CloseToken string
	Poll       poll.Definition
}

type VoteInput struct {
	PollJWT        string  `json:"pollJwt" validate:"required"`
	CustomResponse *string `json:"customResponse" validate:"omitempty,max=250"`
	ResponseIdx    *int    `json:"responseIdx"`
}

// CreatePoll persists a new poll and issues its voter and moderator tokens.
// No token is issued unless the poll was stored.
func (s *PollService) CreatePoll(ctx context.Context, in CreatePollInput) (CreatePollResult, error) {
	errs := s.validator.Struct(in)
	if in.FreeResponse != nil && !*in.FreeResponse && len(in.Responses) == 0 {
		errs.Add("responses", "The responses field is required when freeResponse is false.")
	}
	if !errs.Empty() {
		return CreatePollResult{}, errs
	}

	def := poll.Definition{
		ID:           uuid.New(),
		Question:     in.Question,
		FreeResponse: *in.FreeResponse,
	}
	if !def.FreeResponse {
		def.Responses = slices.Clone(in.Responses)
	}
	ctx = logger.WithPollID(ctx, def.ID.String())

	if err := s.repo.CreatePoll(ctx, def); err != nil {
		s.logger.ErrorCtx(ctx, "create poll failed", zap.Error(err))
		return CreatePollResult{}, err
	}

	pollToken, err := s.tokens.SignPoll(ctx, def)
	if err != nil {
		return CreatePollResult{}, err
	}
	closeToken, err := s.tokens.SignClose(ctx, def.ID, s.now())
	if err != nil {
		return CreatePollResult{}, err
	}

	s.logger.InfoCtx(ctx, "poll created",
		zap.Bool("free_response", def.FreeResponse),
		zap.Int("responses", len(def.Responses)))
	s.publish(ctx, events.TypePollCreated, def.ID, events.PollCreatedPayload{
		PollID:       def.ID.String(),
		FreeResponse: def.FreeResponse,
		Responses:    len(def.Responses),
	})

	return CreatePollResult{PollToken: pollToken, CloseToken: closeToken, Poll: def}, nil
}

// AddVote records one vote. Eligibility is decided from the poll token alone:
// it certifies the definition the voter was shown, so storage is not consulted.
func (s *PollService) AddVote(ctx context.Context, in VoteInput) error {
	errs := s.validator.Struct(in)
	switch {
	case in.CustomResponse == nil && in.ResponseIdx == nil:
		errs.Add("customResponse", "The customResponse field is required when responseIdx is not present.")
		errs.Add("responseIdx", "The responseIdx field is required when customResponse is not present.")
	case in.CustomResponse != nil && in.ResponseIdx != nil:
		errs.Add("customResponse", "Only one of customResponse or responseIdx may be present.")
	case in.CustomResponse != nil && *in.CustomResponse == "":
		errs.Add("customResponse", "The customResponse field is required when responseIdx is not present.")
	case in.CustomResponse != nil && strings.ContainsAny(*in.CustomResponse, "\r\n"):
		errs.Add("customResponse", "The customResponse may not contain line breaks.")
	}
	if !errs.Empty() {
		return errs
	}

	def, err := s.tokens.VerifyPoll(ctx, in.PollJWT)
	if err != nil {
		return err
	}
	ctx = logger.WithPollID(ctx, def.ID.String())

	var sel poll.Selection
	if in.CustomResponse != nil {
		sel = poll.FreeTextSelection(*in.CustomResponse)
	} else {
		sel = poll.IndexSelection(*in.ResponseIdx)
	}
	if err := admit(def, sel); err != nil {
		return err
	}

	if _, err := s.repo.InsertVote(ctx, poll.Vote{PollID: def.ID, Selection: sel}); err != nil {
		s.logger.ErrorCtx(ctx, "insert vote failed", zap.Error(err))
		return err
	}
	return nil
}

func admit(def poll.Definition, sel poll.Selection) error {
	if sel.IsFreeText() != def.FreeResponse {
		return pollbox_errors.ErrInvalidVote
	}
	if !def.FreeResponse {
		idx := *sel.ResponseIdx
		if idx < 0 || idx >= len(def.Responses) {
			return pollbox_errors.ErrInvalidVote
		}
	}
	return nil
}

// CloseAndTally closes the poll and aggregates its votes.
//
// The conditional close in the repository is the only gate: exactly one
// caller gets past it and aggregates, every later caller gets
// ErrAlreadyClosed. A failure after the gate leaves the poll closed, so
// anything that can be checked up front is checked before it.
func (s *PollService) CloseAndTally(ctx context.Context, closeToken string) (poll.Tally, error) {
	if closeToken == "" {
		errs := pollbox_errors.NewValidationError()
		errs.Add("endJwt", "The endJwt field is required.")
		return poll.Tally{}, errs
	}

	grant, err := s.tokens.VerifyClose(ctx, closeToken)
	if err != nil {
		return poll.Tally{}, err
	}
	if !grant.IssuedAt.Before(s.now().Add(s.maxSkew)) {
		return poll.Tally{}, pollbox_errors.ErrUnauthorized
	}
	ctx = logger.WithPollID(ctx, grant.PollID.String())

	meta, err := s.repo.ReadPollMeta(ctx, grant.PollID)
	if err != nil {
		return poll.Tally{}, err
	}
	if meta.Closed() {
		return poll.Tally{}, pollbox_errors.ErrAlreadyClosed
	}
	if meta.FreeResponse && s.exporter == nil {
		return poll.Tally{}, errExportNotConfigured
	}

	outcome, err := s.repo.TryClosePoll(ctx, grant.PollID)
	if err != nil {
		return poll.Tally{}, err
	}
	if outcome == poll.CloseOutcomeAlreadyClosed {
		return poll.Tally{}, pollbox_errors.ErrAlreadyClosed
	}
	s.logger.InfoCtx(ctx, "poll closed")

	def, err := s.definition(ctx, meta)
	if err != nil {
		return poll.Tally{}, err
	}

	var tally poll.Tally
	if def.FreeResponse {
		tally, err = s.exportFreeResponses(ctx, def)
	} else {
		tally, err = s.countVotes(ctx, def)
	}
	if err != nil {
		s.logger.ErrorCtx(ctx, "tally failed, poll stays closed", zap.Error(err))
		return poll.Tally{}, err
	}

	s.logger.InfoCtx(ctx, "poll tallied", zap.Int("count", tally.TotalVotes))
	s.publish(ctx, events.TypePollClosed, def.ID, events.PollClosedPayload{
		PollID:       def.ID.String(),
		FreeResponse: def.FreeResponse,
		Count:        tally.TotalVotes,
	})
	return tally, nil
}

// definition rebuilds the poll view from storage, candidates ordered by index.
func (s *PollService) definition(ctx context.Context, meta poll.Meta) (poll.Definition, error) {
	def := poll.Definition{ID: meta.ID, Question: meta.Question, FreeResponse: meta.FreeResponse}
	if def.FreeResponse {
		return def, nil
	}

	candidates, err := s.repo.ReadPollResponses(ctx, meta.ID)
	if err != nil {
		return poll.Definition{}, err
	}
	def.Responses = make([]string, 0, len(candidates))
	for _, c := range candidates {
		for len(def.Responses) <= c.Idx {
			def.Responses = append(def.Responses, "")
		}
		def.Responses[c.Idx] = c.Response
	}
	return def, nil
}

func (s *PollService) countVotes(ctx context.Context, def poll.Definition) (poll.Tally, error) {
	tally := poll.Tally{Poll: def, Counts: map[int]int{}}
	for vote, err := range s.repo.ScanVotes(ctx, def.ID) {
		if err != nil {
			return poll.Tally{}, err
		}
		if vote.Selection.ResponseIdx == nil {
			s.logger.WarnCtx(ctx, "skipping free-text vote on indexed poll", zap.String("vote_id", vote.ID.String()))
			continue
		}
		tally.Counts[*vote.Selection.ResponseIdx]++
		tally.TotalVotes++
	}
	return tally, nil
}

func (s *PollService) exportFreeResponses(ctx context.Context, def poll.Definition) (poll.Tally, error) {
	if s.exporter == nil {
		return poll.Tally{}, errExportNotConfigured
	}

	votes := s.repo.ScanVotes(ctx, def.ID)
	answers := func(yield func(string, error) bool) {
		for vote, err := range votes {
			if err != nil {
				yield("", err)
				return
			}
			if vote.Selection.FreeText == nil {
				s.logger.WarnCtx(ctx, "skipping indexed vote on free-response poll", zap.String("vote_id", vote.ID.String()))
				continue
			}
			if !yield(*vote.Selection.FreeText, nil) {
				return
			}
		}
	}

	res, err := s.exporter.ExportFreeResponses(ctx, def.ID, answers)
	if err != nil {
		if errors.Is(err, pollbox_errors.ErrStorage) {
			return poll.Tally{}, err
		}
		return poll.Tally{}, pollbox_errors.Storage("export free responses", err)
	}
	return poll.Tally{Poll: def, TotalVotes: res.Lines, ExportURL: res.URL}, nil
}

// publish is best-effort; a broker outage never fails the request.
func (s *PollService) publish(ctx context.Context, eventType string, pollID uuid.UUID, payload interface{}) {
	err := s.publisher.Publish(ctx, events.PollChannel(pollID.String()), events.NewEvent(eventType, payload))
	if err != nil {
		s.logger.WarnCtx(ctx, "publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// Ping reports whether the poll store is reachable.
func (s *PollService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
