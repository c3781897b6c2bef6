package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"pollbox/internal/domain/poll"
	pollbox_errors "pollbox/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to POLLS_TEST_DATABASE_URL and recreates the schema.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POLLS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("POLLS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, name := range []string{"001_init.down.sql", "001_init.up.sql"} {
		sql, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err)
	}
	return pool
}

func TestPostgres_CreateAndRead(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t), 2)
	ctx := context.Background()
	def := poll.Definition{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red", "Blue", "Green"}}

	require.NoError(t, repo.CreatePoll(ctx, def))

	meta, err := repo.ReadPollMeta(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Question, meta.Question)
	assert.False(t, meta.Closed())

	responses, err := repo.ReadPollResponses(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, "Green", responses[2].Response)

	_, err = repo.ReadPollMeta(ctx, uuid.New())
	assert.ErrorIs(t, err, pollbox_errors.ErrNotFound)
}

func TestPostgres_CreateIsAllOrNothing(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPollRepository(pool, 2)
	ctx := context.Background()
	def := poll.Definition{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red"}}
	require.NoError(t, repo.CreatePoll(ctx, def))

	// Same id again: the meta insert fails, so no candidate rows may land.
	dup := poll.Definition{ID: def.ID, Question: "Pick again", Responses: []string{"x", "y", "z"}}
	err := repo.CreatePoll(ctx, dup)
	require.ErrorIs(t, err, pollbox_errors.ErrStorage)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM poll_responses WHERE id = $1`, def.ID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPostgres_VotesAndScan(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t), 2)
	ctx := context.Background()
	def := poll.Definition{ID: uuid.New(), Question: "Anything to add?", FreeResponse: true}
	require.NoError(t, repo.CreatePoll(ctx, def))

	want := []string{"a", "b", "c", "d", "e"}
	for _, text := range want {
		id, err := repo.InsertVote(ctx, poll.Vote{PollID: def.ID, Selection: poll.FreeTextSelection(text)})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
	}

	var got []string
	for v, err := range repo.ScanVotes(ctx, def.ID) {
		require.NoError(t, err)
		require.NotNil(t, v.Selection.FreeText)
		assert.Nil(t, v.Selection.ResponseIdx)
		got = append(got, *v.Selection.FreeText)
	}
	assert.ElementsMatch(t, want, got)
}

func TestPostgres_TryClosePollSingleWinner(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t), 2)
	ctx := context.Background()
	def := poll.Definition{ID: uuid.New(), Question: "Pick a color", Responses: []string{"Red"}}
	require.NoError(t, repo.CreatePoll(ctx, def))

	var winners, losers atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := repo.TryClosePoll(ctx, def.ID)
			if !assert.NoError(t, err) {
				return
			}
			if outcome == poll.CloseOutcomeClosed {
				winners.Add(1)
			} else {
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(7), losers.Load())

	meta, err := repo.ReadPollMeta(ctx, def.ID)
	require.NoError(t, err)
	assert.True(t, meta.Closed())

	_, err = repo.TryClosePoll(ctx, uuid.New())
	assert.ErrorIs(t, err, pollbox_errors.ErrNotFound)
}
