package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthwatch/healthwatch/internal/platform/auth"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// deactivated accounts alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalid            = errors.New("invalid account")
	// ErrRevocationFailed means the account changed but its outstanding
	// tokens could not be revoked.
	ErrRevocationFailed = errors.New("could not revoke outstanding tokens")
)

const (
	MinPasswordLen = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordLen = 72
	maxUsernameLen = 150
)

// Account maps to the account table.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         auth.Role `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type CreateInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in *CreateInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
}

func (in CreateInput) validate() (auth.Role, error) {
	switch {
	case in.Username == "":
		return "", fieldError("username is required")
	case len(in.Username) > maxUsernameLen:
		return "", fieldError("username is too long")
	case strings.ContainsAny(in.Username, " \t\n"):
		return "", fieldError("username must not contain whitespace")
	case len(in.Password) < MinPasswordLen:
		return "", fieldError("password must be at least 8 characters")
	case len(in.Password) > maxPasswordLen:
		return "", fieldError("password must be at most 72 bytes")
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return "", fieldError(err.Error())
	}
	return role, nil
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func fieldError(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }
