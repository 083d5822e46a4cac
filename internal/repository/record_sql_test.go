package repository

import (
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

func newRecordRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return sqlxDB, mock
}

// seqCodes hands out control numbers in order.
type seqCodes struct {
	codes []string
	calls int
}

func (s *seqCodes) Next() (string, error) {
	code := s.codes[s.calls%len(s.codes)]
	s.calls++
	return code, nil
}

// stemCodes also names its stem, enabling the free-suffix scan.
type stemCodes struct {
	seqCodes
	stem string
}

func (s *stemCodes) Stem() string { return s.stem }

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func strPtr(s string) *string { return &s }

func TestWhereClauseCombinesFilters(t *testing.T) {
	owner := "user-1"
	where, args := whereClause(scholarSchema, models.RecordFilter{
		Status:      "active",
		Search:      "50%_off",
		DetailState: models.DetailMissing,
		UserID:      &owner,
	})

	assert.Equal(t, " WHERE p.status = $1 AND (p.student_number ILIKE $2 OR p.full_name ILIKE $2 OR p.school ILIKE $2 OR d.first_name ILIKE $2 OR d.last_name ILIKE $2 OR d.control_number ILIKE $2) AND d.id IS NULL AND p.user_id = $3", where)
	assert.Equal(t, []interface{}{"active", `%50\%\_off%`, "user-1"}, args)
}

func TestWhereClauseIgnoresOwnerWithoutColumn(t *testing.T) {
	owner := "user-1"
	where, args := whereClause(beneficiarySchema, models.RecordFilter{UserID: &owner, DetailState: models.DetailEmpty})
	assert.Equal(t, " WHERE d.id IS NOT NULL AND COALESCE(TRIM(d.first_name), '') = ''", where)
	assert.Empty(t, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	where, args := whereClause(beneficiarySchema, models.RecordFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func concatArgs(parts ...[]driver.Value) []driver.Value {
	var out []driver.Value
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestPageClampsSize(t *testing.T) {
	assert.Equal(t, " LIMIT 20 OFFSET 0", page(0, 0))
	assert.Equal(t, " LIMIT 100 OFFSET 200", page(3, 500))
}
