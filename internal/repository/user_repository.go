package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, active, last_login, created_at, updated_at`

var userSorts = map[string]bool{
	"email":      true,
	"full_name":  true,
	"role":       true,
	"created_at": true,
	"updated_at": true,
}

// UserRepository provides database access for accounts and their refresh sessions.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// FindByEmail returns a user by email address, compared case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListActiveIDsByRole returns the ids of active users holding any of roles.
// Leave notifications fan out to these reviewers.
func (r *UserRepository) ListActiveIDsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	const query = `SELECT id FROM users WHERE active = TRUE AND role = ANY($1) ORDER BY created_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return ids, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// List filters, sorts and pages accounts. Unknown sort columns fall back to
// newest first.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var p predicates
	if filter.Role != nil {
		p.add("role = " + p.bind(*filter.Role))
	}
	if filter.Active != nil {
		p.add("active = " + p.bind(*filter.Active))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		ph := p.bind("%" + escapeLike(search) + "%")
		p.add("(email ILIKE " + ph + " OR full_name ILIKE " + ph + ")")
	}
	where := p.where()

	sortBy, order := "created_at", "DESC"
	if userSorts[filter.SortBy] {
		sortBy = filter.SortBy
	}
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	query := "SELECT " + userColumns + " FROM users" + where + " ORDER BY " + sortBy + " " + order + page(filter.Page, filter.PageSize)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, p.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where, p.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create inserts a new user. A duplicate email surfaces as a *pq.Error.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = r.now()
	const query = `UPDATE users SET full_name = :full_name, role = :role, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

// Deactivate marks the user inactive and revokes every open session.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "deactivate user", func(tx *sqlx.Tx) error {
		now := r.now()
		res, err := tx.ExecContext(ctx, `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`, id, now)
		if err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return revokeSessions(ctx, tx, id, now)
	})
}

const refreshColumns = "id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent"

// CreateRefreshToken stores a newly issued session token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = r.now()
	}
	query := "INSERT INTO refresh_tokens (" + refreshColumns + ") VALUES (" + namedParams(refreshColumns) + ")"
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks a session up by its opaque value, revoked or not.
// sql.ErrNoRows is returned untouched.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := r.db.GetContext(ctx, &rt, "SELECT "+refreshColumns+" FROM refresh_tokens WHERE token = $1", token)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken ends one session. Revoking twice keeps the first
// revocation time.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token %s: %w", id, err)
	}
	return nil
}

// RevokeUserRefreshTokens ends every open session of the user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return revokeSessions(ctx, r.db, userID, r.now())
}

func revokeSessions(ctx context.Context, db sqlx.ExecerContext, userID string, at time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("revoke sessions of %s: %w", userID, err)
	}
	return nil
}

// namedParams turns "a, b" into ":a, :b".
func namedParams(columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = ":" + c
	}
	return strings.Join(cols, ", ")
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
