package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	"github.com/noah-isme/brgy-records-api/pkg/database"
)

// passwordEnv lets scripts avoid putting the password on the command line.
const passwordEnv = "BRGY_ADMIN_PASSWORD"

var (
	adminEmail    string
	adminName     string
	adminPassword string
	adminRole     string
)

// createAdminCmd seeds the first administrator
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an ADMIN or SUPERADMIN account directly in the database.

The password comes from --password or the ` + passwordEnv + ` environment variable.`,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Full name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password, at least 8 characters")
	createAdminCmd.Flags().StringVar(&adminRole, "role", string(models.RoleSuperAdmin), "SUPERADMIN or ADMIN")
	_ = createAdminCmd.MarkFlagRequired("email")
}

func adminUser(email, name, password, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	r := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	if r != models.RoleSuperAdmin && r != models.RoleAdmin {
		return nil, fmt.Errorf("role must be SUPERADMIN or ADMIN, got %q", role)
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(name),
		Role:         r,
		Active:       true,
		PasswordHash: string(hash),
	}, nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	password := adminPassword
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	user, err := adminUser(adminEmail, adminName, password, adminRole)
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := repository.NewUserRepository(e.db).Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return fmt.Errorf("a user with email %s already exists", user.Email)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
