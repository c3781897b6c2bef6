package repository

import (
	"context"
	"errors"
	"iter"

	"pollbox/internal/domain/poll"
	pollbox_errors "pollbox/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const DefaultScanPageSize = 500

type PostgresPollRepository struct {
	db       DBTX
	pageSize int
}

func NewPollRepository(db DBTX, pageSize int) PollRepository {
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}
	return &PostgresPollRepository{db: db, pageSize: pageSize}
}

func (r *PostgresPollRepository) CreatePoll(ctx context.Context, def poll.Definition) error {
	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO poll_meta (id, question, free_response) VALUES ($1, $2, $3)`,
		def.ID, def.Question, def.FreeResponse,
	)
	if !def.FreeResponse {
		for idx, response := range def.Responses {
			batch.Queue(
				`INSERT INTO poll_responses (id, idx, response) VALUES ($1, $2, $3)`,
				def.ID, idx, response,
			)
		}
	}

	err := WithTx(ctx, r.db, func(tx DBTX) error {
		return execBatch(ctx, tx, batch)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return pollbox_errors.Storage("create poll: duplicate id", err)
		}
		return pollbox_errors.Storage("create poll", err)
	}
	return nil
}

func (r *PostgresPollRepository) TryClosePoll(ctx context.Context, id uuid.UUID) (poll.CloseOutcome, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE poll_meta SET ended = now() WHERE id = $1 AND ended IS NULL`, id)
	if err != nil {
		return 0, pollbox_errors.Storage("close poll", err)
	}
	if tag.RowsAffected() == 1 {
		return poll.CloseOutcomeClosed, nil
	}

	// Nothing updated: either someone closed it first or it never existed.
	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM poll_meta WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return 0, pollbox_errors.Storage("close poll", err)
	}
	if !exists {
		return 0, pollbox_errors.ErrNotFound
	}
	return poll.CloseOutcomeAlreadyClosed, nil
}

func (r *PostgresPollRepository) ReadPollMeta(ctx context.Context, id uuid.UUID) (poll.Meta, error) {
	var m poll.Meta
	err := r.db.QueryRow(ctx,
		`SELECT id, question, free_response, ended FROM poll_meta WHERE id = $1`, id,
	).Scan(&m.ID, &m.Question, &m.FreeResponse, &m.Ended)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return poll.Meta{}, pollbox_errors.ErrNotFound
		}
		return poll.Meta{}, pollbox_errors.Storage("read poll meta", err)
	}
	return m, nil
}

func (r *PostgresPollRepository) ReadPollResponses(ctx context.Context, id uuid.UUID) ([]poll.CandidateResponse, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, idx, response FROM poll_responses WHERE id = $1 ORDER BY idx`, id)
	if err != nil {
		return nil, pollbox_errors.Storage("read poll responses", err)
	}
	defer rows.Close()

	var responses []poll.CandidateResponse
	for rows.Next() {
		var c poll.CandidateResponse
		if err := rows.Scan(&c.PollID, &c.Idx, &c.Response); err != nil {
			return nil, pollbox_errors.Storage("read poll responses", err)
		}
		responses = append(responses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pollbox_errors.Storage("read poll responses", err)
	}
	return responses, nil
}

func (r *PostgresPollRepository) InsertVote(ctx context.Context, vote poll.Vote) (uuid.UUID, error) {
	voteID := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO vote (vote_id, poll_id, response_idx, custom_response) VALUES ($1, $2, $3, $4)`,
		voteID, vote.PollID, vote.Selection.ResponseIdx, vote.Selection.FreeText,
	)
	if err != nil {
		return uuid.Nil, pollbox_errors.Storage("insert vote", err)
	}
	return voteID, nil
}

// ScanVotes walks the poll's votes with keyset pagination on vote_id.
func (r *PostgresPollRepository) ScanVotes(ctx context.Context, pollID uuid.UUID) iter.Seq2[poll.Vote, error] {
	return Paginate(ctx, uuid.Nil, func(ctx context.Context, after uuid.UUID) ([]poll.Vote, uuid.UUID, bool, error) {
		page, err := r.votePage(ctx, pollID, after)
		if err != nil {
			return nil, uuid.Nil, false, pollbox_errors.Storage("scan votes", err)
		}
		if len(page) == 0 {
			return nil, uuid.Nil, false, nil
		}
		return page, page[len(page)-1].ID, len(page) == r.pageSize, nil
	})
}

func (r *PostgresPollRepository) votePage(ctx context.Context, pollID, after uuid.UUID) ([]poll.Vote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT vote_id, response_idx, custom_response
		FROM vote
		WHERE poll_id = $1 AND vote_id > $2
		ORDER BY vote_id
		LIMIT $3`, pollID, after, r.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]poll.Vote, 0, r.pageSize)
	for rows.Next() {
		v := poll.Vote{PollID: pollID}
		if err := rows.Scan(&v.ID, &v.Selection.ResponseIdx, &v.Selection.FreeText); err != nil {
			return nil, err
		}
		page = append(page, v)
	}
	return page, rows.Err()
}

func (r *PostgresPollRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}
