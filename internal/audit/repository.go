package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the trail.
const (
	ActionLoginSuccess  = "login_success"
	ActionLoginRejected = "login_rejected"
)

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditLog is one audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog reads better than audit.Log at call sites
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Device    string         `json:"device,omitempty"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter selects audit entries. Empty fields match everything.
type Filter struct {
	Action string
	Device string
	Source string
	Limit  int // default 50, max 200
	Offset int
}

// ListResult is one page of audit entries.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines audit log persistence.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository keeps audit logs in the audit_logs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db. The audit_logs
// migration must already be applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts log, filling in ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	log.CreatedAt = log.CreatedAt.UTC()

	var details any
	if len(log.Details) > 0 {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		details = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, device_name, source, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID, log.Action, log.Device, log.Source, details,
		log.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = clampPage(filter)

	var (
		conditions []string
		args       []any
	)
	for _, c := range []struct{ column, value string }{
		{"action", filter.Action},
		{"device_name", filter.Device},
		{"source", filter.Source},
	} {
		if c.value != "" {
			conditions = append(conditions, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // columns are fixed, values parameterised
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, action, device_name, source, details, created_at FROM audit_logs " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var (
			log       AuditLog
			details   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&log.ID, &log.Action, &log.Device, &log.Source, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &log.Details); err != nil {
				return nil, fmt.Errorf("decoding details of %s: %w", log.ID, err)
			}
		}
		if log.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{Logs: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func clampPage(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
