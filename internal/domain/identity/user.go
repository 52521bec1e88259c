package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRole represents the role a user holds within their organization
type UserRole string

const (
	RoleAdmin  UserRole = "admin"  // Organization administrator, may issue receipts
	RoleMember UserRole = "member" // Regular member
)

// IsValid checks if the role is a valid UserRole
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Password cost for bcrypt
const bcryptCost = 12

// User represents a member of an organization. Administrators act as the
// legal issuer of fiscal receipts; their IBAN is captured on each receipt
// at issuance time.
type User struct {
	shared.OrgAggregateRoot
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         UserRole
	IBAN         string // Bank account receipts are issued against
	TaxID        string
	LastLoginAt  *time.Time
}

// NewUser creates a new user with required fields
func NewUser(organizationID uuid.UUID, username, password string, role UserRole) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("Role must be admin or member")
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		Username:         strings.ToLower(strings.TrimSpace(username)),
		PasswordHash:     passwordHash,
		Role:             role,
	}, nil
}

// SetEmail sets the user's email
func (u *User) SetEmail(email string) error {
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
		email = strings.ToLower(strings.TrimSpace(email))
	}

	u.Email = email
	u.UpdatedAt = time.Now()
	return nil
}

// SetDisplayName sets the user's display name
func (u *User) SetDisplayName(displayName string) error {
	if len(displayName) > 200 {
		return shared.NewValidationError("Display name cannot exceed 200 characters")
	}
	u.DisplayName = strings.TrimSpace(displayName)
	u.UpdatedAt = time.Now()
	return nil
}

// SetIBAN records the bank account used on issued receipts
func (u *User) SetIBAN(iban string) error {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if iban != "" && !ibanRegex.MatchString(iban) {
		return shared.NewValidationError("Invalid IBAN format")
	}
	u.IBAN = iban
	u.UpdatedAt = time.Now()
	return nil
}

// SetTaxID sets the user's fiscal identification number
func (u *User) SetTaxID(taxID string) error {
	if len(taxID) > 50 {
		return shared.NewValidationError("Tax ID cannot exceed 50 characters")
	}
	u.TaxID = strings.TrimSpace(taxID)
	u.UpdatedAt = time.Now()
	return nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLoginSuccess updates login tracking information
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// IsAdmin reports whether the user administers their organization
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasIBAN reports whether an issuing bank account is configured
func (u *User) HasIBAN() bool {
	return u.IBAN != ""
}

// GetDisplayNameOrUsername returns the display name, falling back to username
func (u *User) GetDisplayNameOrUsername() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Validation

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	ibanRegex     = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
)

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.NewValidationError("Username cannot be empty")
	}
	if len(username) < 3 {
		return shared.NewValidationError("Username must be at least 3 characters")
	}
	if len(username) > 100 {
		return shared.NewValidationError("Username cannot exceed 100 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewValidationError("Username can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewValidationError("Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.NewValidationError("Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewValidationError("Password cannot exceed 128 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewValidationError("Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewValidationError("Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
