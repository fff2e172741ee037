package clinic

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyExists is returned when a second settings record is created.
	ErrAlreadyExists = errors.New("clinic settings already exist")
	ErrInvalid       = errors.New("invalid clinic settings")
)

const (
	maxNameLen  = 255
	maxPhoneLen = 50
)

// Settings maps to the clinic_settings table, which holds at most one row.
type Settings struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type SettingsInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (in *SettingsInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
}

func (in SettingsInput) validate() error {
	switch {
	case in.Name == "":
		return fieldError("name is required")
	case len(in.Name) > maxNameLen:
		return fieldError("name is too long")
	case len(in.Phone) > maxPhoneLen:
		return fieldError("phone is too long")
	}
	return nil
}

func fieldError(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }
