package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/pkg/database"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email,max=150"`
	FullName string          `json:"full_name" validate:"required,max=150"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN STAFF STUDENT"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=150"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN STAFF STUDENT"`
	Active   *bool           `json:"active"`
}

func (r *CreateUserRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(r.Role))))
}

func (r *UpdateUserRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(r.Role))))
}

// UserService handles account administration. Only admins reach it, and only
// a SUPERADMIN may grant or modify the SUPERADMIN role.
type UserService struct {
	repo      userRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, caller models.Caller, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Create adds a new account.
func (s *UserService) Create(ctx context.Context, caller models.Caller, req CreateUserRequest) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	if req.Role == models.RoleSuperAdmin && caller.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superadmin may create superadmins")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       active,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Storage(err, "failed to create user")
	}

	s.audit.Record(ctx, caller, models.AuditActionUserCreate, models.AuditResourceUser, user.ID, nil,
		map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active})
	return user, nil
}

// Update modifies name, role and active flag.
func (s *UserService) Update(ctx context.Context, caller models.Caller, id string, req UpdateUserRequest) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleSuperAdmin && (user.Role == models.RoleSuperAdmin || req.Role == models.RoleSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superadmin may manage superadmins")
	}

	before := map[string]interface{}{"full_name": user.FullName, "role": user.Role, "active": user.Active}
	user.FullName = req.FullName
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Storage(err, "failed to update user")
	}

	s.audit.Record(ctx, caller, models.AuditActionUserUpdate, models.AuditResourceUser, user.ID, before,
		map[string]interface{}{"full_name": user.FullName, "role": user.Role, "active": user.Active})
	return user, nil
}

// Deactivate disables an account and revokes its sessions. Callers cannot
// deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, caller models.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if id == caller.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleSuperAdmin && caller.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only a superadmin may manage superadmins")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Storage(err, "failed to deactivate user")
	}

	s.audit.Record(ctx, caller, models.AuditActionUserDelete, models.AuditResourceUser, id,
		map[string]bool{"active": user.Active}, map[string]bool{"active": false})
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Storage(err, "failed to load user")
	}
	return user, nil
}

func requireAdmin(caller models.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}
