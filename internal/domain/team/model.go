package team

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxNameLen     = 100
	maxPositionLen = 100
	maxAge         = 150
)

// ErrInvalid marks a rejected member payload.
var ErrInvalid = errors.New("invalid team member")

// TeamMember maps to the team_member table.
type TeamMember struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Age       int       `db:"age" json:"age"`
	Position  string    `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MemberInput is the writable part of a member.
type MemberInput struct {
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
	Position string `json:"position"`
}

func (in *MemberInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Position = strings.TrimSpace(in.Position)
}

func (in MemberInput) validate() error {
	switch {
	case in.FullName == "":
		return fieldError("full_name is required")
	case len(in.FullName) > maxNameLen:
		return fieldError("full_name is too long")
	case in.Position == "":
		return fieldError("position is required")
	case len(in.Position) > maxPositionLen:
		return fieldError("position is too long")
	case in.Age < 0 || in.Age > maxAge:
		return fieldError("age must be between 0 and 150")
	}
	return nil
}

func fieldError(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }

// ListFilter narrows a member listing.
type ListFilter struct {
	// Name matches full_name case-insensitively as a substring.
	Name string
}
