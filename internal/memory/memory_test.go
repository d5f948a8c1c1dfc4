package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/store"
)

// Both implementations must satisfy the same contract, so every test
// runs against both.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("inmem", func(t *testing.T) {
		fn(t, NewInMemoryStore())
	})

	t.Run("sqlite", func(t *testing.T) {
		db, err := store.Open(":memory:", logging.Silent())
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		fn(t, NewSQLiteStore(db))
	})
}

func seqTurn(seq int, turn domain.Turn) domain.Turn {
	turn.Seq = seq
	return turn
}

func TestGetOrCreate_NewSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		sess, err := s.GetOrCreate(context.Background(), "")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.Empty(t, sess.Turns)
		assert.False(t, sess.CreatedAt.IsZero())
	})
}

func TestGetOrCreate_ExistingSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(1, domain.NewUserTurn("hi"))))

		again, err := s.GetOrCreate(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, again.ID)
		require.Len(t, again.Turns, 1)
		assert.Equal(t, "hi", again.Turns[0].Text)
	})
}

func TestGetOrCreate_ExplicitID(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		sess, err := s.GetOrCreate(context.Background(), "my-session")
		require.NoError(t, err)
		assert.Equal(t, "my-session", sess.ID)
	})
}

func TestAppend_History_Order(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(1, domain.NewUserTurn("list sci-fi movies"))))
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(2, domain.NewToolCallTurn("movie_sql_query", json.RawMessage(`{"request":"sci-fi"}`)))))
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(3, domain.NewToolResultTurn("movie_sql_query", `[{"Series_Title":"Inception"}]`, true))))
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(4, domain.NewFinalTurn("Inception.", false))))

		turns, err := s.History(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, turns, 4)

		for i, turn := range turns {
			assert.Equal(t, i+1, turn.Seq, "seq must be dense and 1-based")
		}
		assert.Equal(t, domain.TurnUserMessage, turns[0].Kind)
		assert.Equal(t, domain.TurnToolCall, turns[1].Kind)
		assert.Equal(t, domain.TurnToolResult, turns[2].Kind)
		assert.Equal(t, domain.TurnFinalAnswer, turns[3].Kind)
	})
}

func TestAppend_RoundTripsToolFields(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		args := json.RawMessage(`{"query":"dream heist","k":3}`)
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(1, domain.NewToolCallTurn("movie_semantic_search", args))))
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(2, domain.NewToolResultTurn("movie_semantic_search", "tool timed out", false))))

		turns, err := s.History(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, turns, 2)

		assert.Equal(t, "movie_semantic_search", turns[0].Tool)
		assert.JSONEq(t, string(args), string(turns[0].Args))
		assert.False(t, turns[1].OK)
		assert.Equal(t, "tool timed out", turns[1].Output)
	})
}

func TestAppend_RejectsOutOfOrderSeq(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(1, domain.NewUserTurn("first"))))

		err = s.Append(ctx, sess.ID, seqTurn(3, domain.NewUserTurn("skipped")))
		assert.Error(t, err)

		err = s.Append(ctx, sess.ID, seqTurn(1, domain.NewUserTurn("duplicate")))
		assert.Error(t, err)

		turns, err := s.History(ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})
}

func TestAppend_RejectsInvalidTurn(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		err = s.Append(ctx, sess.ID, seqTurn(1, domain.Turn{Kind: "telepathy"}))
		assert.Error(t, err)

		err = s.Append(ctx, sess.ID, seqTurn(1, domain.Turn{Kind: domain.TurnUserMessage}))
		assert.Error(t, err)
	})
}

func TestAppend_UnknownSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		err := s.Append(context.Background(), "nope", seqTurn(1, domain.NewUserTurn("hi")))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestHistory_UnknownSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.History(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClear_RemovesSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)
		require.NoError(t, s.Append(ctx, sess.ID, seqTurn(1, domain.NewUserTurn("hi"))))

		require.NoError(t, s.Clear(ctx, sess.ID))

		_, err = s.History(ctx, sess.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClear_UnknownSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		err := s.Clear(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestList_MostRecentFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, err := s.GetOrCreate(ctx, "first")
		require.NoError(t, err)
		second, err := s.GetOrCreate(ctx, "second")
		require.NoError(t, err)

		// Touch the older session so it becomes the most recent
		require.NoError(t, s.Append(ctx, first.ID, seqTurn(1, domain.NewUserTurn("bump"))))

		infos, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, first.ID, infos[0].ID)
		assert.Equal(t, 1, infos[0].Turns)
		assert.Equal(t, second.ID, infos[1].ID)
		assert.Equal(t, 0, infos[1].Turns)
	})
}

func TestList_Empty(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		infos, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}

func TestTurnCount_MonotoneAcrossOperations(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)

		prev := 0
		for i := 1; i <= 5; i++ {
			require.NoError(t, s.Append(ctx, sess.ID, seqTurn(i, domain.NewThoughtTurn("step"))))

			turns, err := s.History(ctx, sess.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(turns), prev)
			prev = len(turns)

			// Reads must not shrink the transcript
			_, err = s.GetOrCreate(ctx, sess.ID)
			require.NoError(t, err)
			_, err = s.List(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, 5, prev)
	})
}
