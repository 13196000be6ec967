package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// DefaultListLimit applies when ListSessions gets a non-positive limit.
const DefaultListLimit = 50

type SQLiteConversationRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteConversationRepository migrates the schema and returns the repository.
func NewSQLiteConversationRepository(ctx context.Context, db *sql.DB) (*SQLiteConversationRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite db is nil")
	}
	if err := migrate(ctx, db); err != nil {
		logx.Error().Err(err).Msg("failed to migrate conversation schema")
		return nil, fmt.Errorf("init conversation schema: %w", err)
	}
	return &SQLiteConversationRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteConversationRepository) AppendTurns(ctx context.Context, sessionKey string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to begin append transaction")
		return errx.WrapSQLite(err)
	}
	defer tx.Rollback()

	now := r.now().UnixNano()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (session_key, turn_count, created_at, updated_at) VALUES (?, 0, ?, ?)
ON CONFLICT(session_key) DO NOTHING`, sessionKey, now, now); err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to upsert session")
		return errx.WrapSQLite(err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT turn_count FROM sessions WHERE session_key = ?`, sessionKey).Scan(&seq); err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to read turn count")
		return errx.WrapSQLite(err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO turns (session_key, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errx.WrapSQLite(err)
	}
	defer stmt.Close()

	for _, t := range turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = r.now()
		}
		if _, err := stmt.ExecContext(ctx, sessionKey, seq, string(t.Role), t.Content, created.UnixNano()); err != nil {
			logx.Error().Err(err).Str("session_key", sessionKey).Int("seq", seq).Msg("failed to insert turn")
			return errx.WrapSQLite(err)
		}
		seq++
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET turn_count = ?, updated_at = ? WHERE session_key = ?`, seq, now, sessionKey); err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to touch session")
		return errx.WrapSQLite(err)
	}

	if err := tx.Commit(); err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to commit turns")
		return errx.WrapSQLite(err)
	}
	return nil
}

func (r *SQLiteConversationRepository) LoadConversation(ctx context.Context, sessionKey string) (*model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, content, created_at FROM turns WHERE session_key = ? ORDER BY seq ASC`, sessionKey)
	if err != nil {
		logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to query turns")
		return nil, errx.WrapSQLite(err)
	}
	defer rows.Close()

	turns := []model.Turn{}
	for rows.Next() {
		var (
			role    string
			content string
			created int64
		)
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, errx.WrapSQLite(err)
		}
		turns = append(turns, model.Turn{
			Role:      model.Role(role),
			Content:   content,
			CreatedAt: time.Unix(0, created).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQLite(err)
	}
	return &model.Conversation{SessionKey: sessionKey, Turns: turns}, nil
}

func (r *SQLiteConversationRepository) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT session_key, turn_count, updated_at FROM sessions
WHERE turn_count > 0
ORDER BY updated_at DESC, session_key ASC
LIMIT ?`, limit)
	if err != nil {
		logx.Error().Err(err).Msg("failed to list sessions")
		return nil, errx.WrapSQLite(err)
	}
	defer rows.Close()

	out := []model.SessionSummary{}
	for rows.Next() {
		var (
			s       model.SessionSummary
			updated int64
		)
		if err := rows.Scan(&s.SessionKey, &s.TurnCount, &updated); err != nil {
			return nil, errx.WrapSQLite(err)
		}
		s.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQLite(err)
	}
	return out, nil
}

var _ model.ConversationRepository = (*SQLiteConversationRepository)(nil)
