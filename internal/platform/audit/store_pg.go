package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGStore persists audit entries in the audit_log table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// conn returns the transaction bound to the context when present, so an
// append participates in the caller's transaction and rolls back with the
// primary mutation. Otherwise the pool is used directly.
func (s *PGStore) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return s.pool
}

const entryCols = `id, user_id, user_name, user_role, action, resource_type, resource_id,
	patient_id, old_values, new_values, description, ip_address, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var ip *string
	err := row.Scan(&e.ID, &e.UserID, &e.UserName, &e.UserRole, &e.Action, &e.ResourceType,
		&e.ResourceID, &e.PatientID, &e.OldValues, &e.NewValues, &e.Description, &ip, &e.CreatedAt)
	if ip != nil {
		e.IPAddress = *ip
	}
	return &e, err
}

// Append inserts the entry. The entry is re-normalized defensively before
// writing so a misuse of BuildEntry cannot produce a non-serializable row.
func (s *PGStore) Append(ctx context.Context, e *Entry) error {
	prepareEntry(e)

	var ip *string
	if e.IPAddress != "" {
		ip = &e.IPAddress
	}

	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, user_id, user_name, user_role, action, resource_type,
			resource_id, patient_id, old_values, new_values, description, ip_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.UserID, e.UserName, e.UserRole, e.Action, e.ResourceType,
		e.ResourceID, e.PatientID, e.OldValues, e.NewValues, e.Description, ip, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	return nil
}

// Query returns matching entries ordered by created_at descending, id
// descending on ties.
func (s *PGStore) Query(ctx context.Context, f Filter, limit, offset int) ([]*Entry, error) {
	limit, offset = clampPage(limit, offset)

	where, args := buildWhere(f)
	idx := len(args) + 1
	query := `SELECT ` + entryCols + ` FROM audit_log` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the filter.
func (s *PGStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)
	var total int
	err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total)
	return total, err
}

func buildWhere(f Filter) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != uuid.Nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.UserID != uuid.Nil {
		where += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.ResourceType != "" {
		where += fmt.Sprintf(` AND resource_type = $%d`, idx)
		args = append(args, f.ResourceType)
		idx++
	}
	return where, args
}
