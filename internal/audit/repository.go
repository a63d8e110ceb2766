package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcomes of an actuation attempt.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Sources of an actuation.
const (
	SourceActivation   = "activation"
	SourceBackToNormal = "back_to_normal"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Entry is one actuation attempt.
type Entry struct {
	ID         string    `json:"id"`
	Channel    int       `json:"channel"`
	On         bool      `json:"on"`
	Source     string    `json:"source"`
	TriggerKey string    `json:"trigger_key,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Channel *int
	Outcome string
	Limit   int // default 50, max 200
}

// Repository stores actuation entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// SQLiteRepository implements Repository on the actuation_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository backed by db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts entry, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "act-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeOK
	}

	state := 0
	if entry.On {
		state = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actuation_log (id, channel, state, source, trigger_key, outcome, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Channel, state, entry.Source,
		nullableString(entry.TriggerKey), entry.Outcome, nullableString(entry.Error),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting actuation entry: %w", err)
	}

	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var conditions []string
	var args []any
	if filter.Channel != nil {
		conditions = append(conditions, "channel = ?")
		args = append(args, *filter.Channel)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, channel, state, source, trigger_key, outcome, error, created_at
		 FROM actuation_log %s ORDER BY created_at DESC, id DESC LIMIT ?`, where)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying actuation log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var state int
		var triggerKey, errText sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Channel, &state, &e.Source,
			&triggerKey, &e.Outcome, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning actuation entry: %w", err)
		}

		e.On = state == 1
		e.TriggerKey = triggerKey.String
		e.Error = errText.String

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing actuation timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuation log: %w", err)
	}

	return entries, nil
}
