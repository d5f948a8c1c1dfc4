package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/store"
)

// timeLayout is fixed-width UTC so stored timestamps sort
// lexicographically and round-trip without losing precision.
const timeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore persists sessions in the marquee database, so `serve`
// survives restarts. Turns live in a child table keyed by (session, seq).
type SQLiteStore struct {
	db *store.DB
}

// NewSQLiteStore creates a session store on the given database.
func NewSQLiteStore(db *store.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string) (*domain.Session, error) {
	if id != "" {
		sess, err := s.load(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	_, err := s.db.SQL().ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("memory: create session: %w", err)
	}
	return &domain.Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	tx, err := s.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memory: append: %w", err)
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM turns WHERE session_id = ?", sessionID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("memory: append: %w", err)
	}

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("memory: append: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if want := int(maxSeq.Int64) + 1; turn.Seq != want {
		return fmt.Errorf("memory: out-of-order append: seq %d, want %d", turn.Seq, want)
	}

	args := ""
	if len(turn.Args) > 0 {
		args = string(turn.Args)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, kind, created_at, text, tool, args, output, ok, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID, turn.Seq, string(turn.Kind), turn.Timestamp.UTC().Format(timeLayout),
		turn.Text, turn.Tool, args, turn.Output, boolToInt(turn.OK), boolToInt(turn.Degraded),
	); err != nil {
		return fmt.Errorf("memory: append turn %d: %w", turn.Seq, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), sessionID,
	); err != nil {
		return fmt.Errorf("memory: touch session: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.loadTurns(ctx, sessionID)
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	res, err := s.db.SQL().ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("memory: clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("memory: clear: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, COUNT(t.seq)
		FROM sessions s
		LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("memory: list: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var created, updated string
		if err := rows.Scan(&info.ID, &created, &updated, &info.Turns); err != nil {
			return nil, fmt.Errorf("memory: list: %w", err)
		}
		info.CreatedAt, _ = time.Parse(timeLayout, created)
		info.UpdatedAt, _ = time.Parse(timeLayout, updated)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) load(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	var created, updated string
	err := s.db.SQL().QueryRowContext(ctx,
		"SELECT id, created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memory: load session: %w", err)
	}

	sess.CreatedAt, _ = time.Parse(timeLayout, created)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updated)

	turns, err := s.loadTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns
	return &sess, nil
}

func (s *SQLiteStore) loadTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `
		SELECT seq, kind, created_at, text, tool, args, output, ok, degraded
		FROM turns WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("memory: load turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		var t domain.Turn
		var kind, ts, args string
		var ok, degraded int
		if err := rows.Scan(&t.Seq, &kind, &ts, &t.Text, &t.Tool, &args, &t.Output, &ok, &degraded); err != nil {
			return nil, fmt.Errorf("memory: load turns: %w", err)
		}
		t.Kind = domain.TurnKind(kind)
		t.Timestamp, _ = time.Parse(timeLayout, ts)
		if args != "" {
			t.Args = json.RawMessage(args)
		}
		t.OK = ok != 0
		t.Degraded = degraded != 0
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
