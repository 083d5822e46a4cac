package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

var (
	// ErrDuplicateDetail is returned when a second detail row for the same
	// primary record hits the unique foreign key.
	ErrDuplicateDetail = errors.New("detail record already exists")
	// ErrControlNumberExhausted means every generated control number collided.
	ErrControlNumberExhausted = errors.New("could not allocate a unique control number")
)

// ControlNumbers produces candidate control numbers.
type ControlNumbers interface {
	Next() (string, error)
}

// recordSchema names the tables and columns shared by every primary/detail pair.
type recordSchema struct {
	primary    string
	detail     string
	foreignKey string
	// searchable expressions matched with ILIKE
	search []string
	// owner column on the primary table, empty when records have no owner
	owner string
}

// withTx runs fn inside a transaction, rolling back on any error.
func withTx(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// stemmedNumbers is implemented by generators that can name the current
// PREFIX-YEAR- stem, which lets insertion scan for a free suffix once random
// candidates keep colliding.
type stemmedNumbers interface {
	Stem() string
}

// insertWithControlNumber runs an INSERT ... ON CONFLICT (control_number) DO
// NOTHING RETURNING id statement whose final placeholder is the control
// number. A collision yields no row and another number is tried. When the
// random candidates run out, the lowest unused suffix in table is claimed.
func insertWithControlNumber(ctx context.Context, tx *sqlx.Tx, codes ControlNumbers, attempts int, table, query string, args []interface{}) (int64, string, error) {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code, err := codes.Next()
		if err != nil {
			return 0, "", fmt.Errorf("generate control number: %w", err)
		}
		id, ok, err := tryControlNumber(ctx, tx, query, args, code)
		if err != nil {
			return 0, "", err
		}
		if ok {
			return id, code, nil
		}
	}

	stemmed, ok := codes.(stemmedNumbers)
	if !ok {
		return 0, "", ErrControlNumberExhausted
	}
	stem := stemmed.Stem()
	// A concurrent writer can take the scanned suffix first, so rescan.
	for i := 0; i < attempts; i++ {
		code, err := freeControlNumber(ctx, tx, table, stem)
		if err != nil {
			return 0, "", err
		}
		id, ok, err := tryControlNumber(ctx, tx, query, args, code)
		if err != nil {
			return 0, "", err
		}
		if ok {
			return id, code, nil
		}
	}
	return 0, "", ErrControlNumberExhausted
}

func tryControlNumber(ctx context.Context, tx *sqlx.Tx, query string, args []interface{}, code string) (int64, bool, error) {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, args...)
	callArgs = append(callArgs, code)

	var id int64
	err := tx.QueryRowxContext(ctx, query, callArgs...).Scan(&id)
	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// freeControlNumber returns the lowest stem-prefixed number not yet present
// in table, or ErrControlNumberExhausted when all 10000 suffixes are taken.
func freeControlNumber(ctx context.Context, tx *sqlx.Tx, table, stem string) (string, error) {
	query := fmt.Sprintf(`SELECT $1 || lpad(s::text, 4, '0') FROM generate_series(0, 9999) AS s
WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.control_number = $1 || lpad(s::text, 4, '0'))
ORDER BY s LIMIT 1`, table)
	var code string
	if err := tx.QueryRowxContext(ctx, query, stem).Scan(&code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrControlNumberExhausted
		}
		return "", fmt.Errorf("scan free control number: %w", err)
	}
	return code, nil
}

// lockPrimary takes a row lock on the primary record, returning sql.ErrNoRows when absent.
func lockPrimary(ctx context.Context, tx *sqlx.Tx, schema recordSchema, id int64) error {
	var locked int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", schema.primary)
	if err := tx.GetContext(ctx, &locked, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock %s: %w", schema.primary, err)
	}
	return nil
}

// deleteCascade removes the detail row then the primary row, returning the
// detail's photo. sql.ErrNoRows is returned when the primary record is absent.
func deleteCascade(ctx context.Context, tx *sqlx.Tx, schema recordSchema, id int64) (*string, error) {
	var photo *string
	detailQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING photo", schema.detail, schema.foreignKey)
	if err := tx.QueryRowxContext(ctx, detailQuery, id).Scan(&photo); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete %s: %w", schema.detail, err)
	}

	primaryQuery := fmt.Sprintf("DELETE FROM %s WHERE id = $1", schema.primary)
	res, err := tx.ExecContext(ctx, primaryQuery, id)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", schema.primary, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", schema.primary, err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return photo, nil
}

// whereClause builds the shared listing predicates over aliases p (primary) and d (detail).
func whereClause(schema recordSchema, filter models.RecordFilter) (string, []interface{}) {
	var p predicates
	if filter.Status != "" {
		p.add("p.status = " + p.bind(filter.Status))
	}
	if filter.Search != "" && len(schema.search) > 0 {
		ph := p.bind("%" + escapeLike(filter.Search) + "%")
		parts := make([]string, len(schema.search))
		for i, col := range schema.search {
			parts[i] = col + " ILIKE " + ph
		}
		p.add("(" + strings.Join(parts, " OR ") + ")")
	}
	switch filter.DetailState {
	case models.DetailMissing:
		p.add("d.id IS NULL")
	case models.DetailEmpty:
		p.add("d.id IS NOT NULL AND COALESCE(TRIM(d.first_name), '') = ''")
	case models.DetailExists:
		p.add("COALESCE(TRIM(d.first_name), '') <> ''")
	}
	if filter.UserID != nil && schema.owner != "" {
		p.add("p." + schema.owner + " = " + p.bind(*filter.UserID))
	}
	return p.where(), p.args
}

func (s recordSchema) from() string {
	return fmt.Sprintf(" FROM %s p LEFT JOIN %s d ON d.%s = p.id", s.primary, s.detail, s.foreignKey)
}

const recordOrder = " ORDER BY p.created_at DESC, p.id DESC"

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// statsQuery returns the single-row aggregate over the primary/detail join.
func statsQuery(schema recordSchema, amountColumn string, ownerFilter bool) string {
	q := fmt.Sprintf(`SELECT COUNT(*) AS total, COALESCE(SUM(p.%s) FILTER (WHERE p.status = $1), 0) AS active_grant_total, COUNT(*) FILTER (WHERE d.id IS NULL) AS missing_detail`, amountColumn) + schema.from()
	if ownerFilter {
		q += fmt.Sprintf(" WHERE p.%s = $2", schema.owner)
	}
	return q
}

func statusCountQuery(schema recordSchema, ownerFilter bool) string {
	q := fmt.Sprintf("SELECT status, COUNT(*) AS count FROM %s", schema.primary)
	if ownerFilter {
		q += fmt.Sprintf(" WHERE %s = $1", schema.owner)
	}
	return q + " GROUP BY status"
}

type statsRow struct {
	Total            int             `db:"total"`
	ActiveGrantTotal decimal.Decimal `db:"active_grant_total"`
	MissingDetail    int             `db:"missing_detail"`
}

// loadStats fills per-status counts (every known status present, zero when
// unused) and the aggregate row. owner restricts both queries when non-nil.
func loadStats(ctx context.Context, db *sqlx.DB, schema recordSchema, amountColumn, activeStatus string, statuses []string, owner *string) (*models.RecordStats, error) {
	stats := &models.RecordStats{ByStatus: make(map[string]int, len(statuses))}
	for _, s := range statuses {
		stats.ByStatus[s] = 0
	}

	var counts []models.StatusCount
	var countArgs []interface{}
	if owner != nil {
		countArgs = append(countArgs, *owner)
	}
	if err := db.SelectContext(ctx, &counts, statusCountQuery(schema, owner != nil), countArgs...); err != nil {
		return nil, fmt.Errorf("count %s by status: %w", schema.primary, err)
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
	}

	var row statsRow
	args := []interface{}{activeStatus}
	if owner != nil {
		args = append(args, *owner)
	}
	if err := db.GetContext(ctx, &row, statsQuery(schema, amountColumn, owner != nil), args...); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", schema.primary, err)
	}
	stats.Total = row.Total
	stats.ActiveGrantTotal = row.ActiveGrantTotal
	stats.MissingDetail = row.MissingDetail
	return stats, nil
}
