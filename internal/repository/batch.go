package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// BatchStore persists batch snapshots. Save is an upsert by batch id.
type BatchStore interface {
	Save(ctx context.Context, b *entity.Batch) error
	Get(ctx context.Context, id string) (*entity.Batch, error)
	List(ctx context.Context, limit int) ([]BatchSummary, error)
}

// BatchSummary is a list entry without pages or packages.
type BatchSummary struct {
	ID        string                `json:"batch_id"`
	Status    constants.BatchStatus `json:"status"`
	ModelName string                `json:"model_name,omitempty"`
	Summary   entity.Summary        `json:"summary"`
	CreatedAt time.Time             `json:"created_at"`
}

const DefaultListLimit = 50

type sqlBatchStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLBatchStore creates the table if needed.
func NewSQLBatchStore(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (BatchStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &sqlBatchStore{db: db, dialect: dialect, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlBatchStore) migrate(ctx context.Context) error {
	payloadType := "TEXT"
	if s.dialect == DialectPostgres {
		payloadType = "JSONB"
	}
	ddl := `CREATE TABLE IF NOT EXISTS menu_batches (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	model_name    TEXT NOT NULL DEFAULT '',
	total         INTEGER NOT NULL DEFAULT 0,
	valid         INTEGER NOT NULL DEFAULT 0,
	with_warnings INTEGER NOT NULL DEFAULT 0,
	invalid       INTEGER NOT NULL DEFAULT 0,
	payload       ` + payloadType + ` NOT NULL,
	created_at    TEXT NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		s.logger.Error("failed to migrate menu_batches", "error", err)
		return errors.Join(common.ErrDatabase, err)
	}
	return nil
}

func (s *sqlBatchStore) Save(ctx context.Context, b *entity.Batch) error {
	if b == nil || strings.TrimSpace(b.ID) == "" {
		return common.NewInputError(common.CodeInvalidInput, "batch id is required")
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	q := s.rebind(`INSERT INTO menu_batches
	(id, status, model_name, total, valid, with_warnings, invalid, payload, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status,
	model_name = excluded.model_name,
	total = excluded.total,
	valid = excluded.valid,
	with_warnings = excluded.with_warnings,
	invalid = excluded.invalid,
	payload = excluded.payload`)
	_, err = s.db.ExecContext(ctx, q,
		b.ID, string(b.Status), b.ModelName,
		b.Summary.Total, b.Summary.Valid, b.Summary.WithWarnings, b.Summary.Invalid,
		string(payload), b.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Error("failed to save batch", "batch_id", b.ID, "error", err)
		return errors.Join(common.ErrDatabase, err)
	}
	return nil
}

func (s *sqlBatchStore) Get(ctx context.Context, id string) (*entity.Batch, error) {
	var payload string
	q := s.rebind(`SELECT payload FROM menu_batches WHERE id = ?`)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("batch %q not found", id), common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("failed to get batch", "batch_id", id, "error", err)
		return nil, errors.Join(common.ErrDatabase, err)
	}
	var b entity.Batch
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return &b, nil
}

func (s *sqlBatchStore) List(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := s.rebind(`SELECT id, status, model_name, total, valid, with_warnings, invalid, created_at
FROM menu_batches ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		s.logger.Error("failed to list batches", "error", err)
		return nil, errors.Join(common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var (
			bs      BatchSummary
			status  string
			created string
		)
		if err := rows.Scan(&bs.ID, &status, &bs.ModelName,
			&bs.Summary.Total, &bs.Summary.Valid, &bs.Summary.WithWarnings, &bs.Summary.Invalid, &created); err != nil {
			return nil, errors.Join(common.ErrDatabase, err)
		}
		bs.Status = constants.BatchStatus(status)
		bs.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	return out, nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *sqlBatchStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
