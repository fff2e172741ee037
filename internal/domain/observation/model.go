package observation

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
)

var (
	// ErrInvalid marks a rejected observation payload.
	ErrInvalid = errors.New("invalid observation")
	// ErrUnknownMember is returned when member_id does not reference a team member.
	ErrUnknownMember = errors.New("team member does not exist")
)

// Observation maps to the health_observation table. RiskScore, RiskLevel
// and Recommendation are always risk.Assess of the raw fields.
type Observation struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	MemberID        uuid.UUID  `db:"member_id" json:"member_id"`
	MemberName      string     `db:"-" json:"member_name"`
	Temperature     *float64   `db:"temperature" json:"temperature"`
	SymptomsPresent bool       `db:"symptoms_present" json:"symptoms_present"`
	CloseContact    bool       `db:"close_contact" json:"close_contact"`
	ChronicDisease  bool       `db:"chronic_disease" json:"chronic_disease"`
	RiskScore       int        `db:"risk_score" json:"risk_score"`
	RiskLevel       risk.Level `db:"risk_level" json:"risk_level"`
	Recommendation  string     `db:"recommendation" json:"recommendation"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ObservationInput is what clients may send. Derived fields are not part
// of it, so values supplied for them are dropped during decoding.
type ObservationInput struct {
	MemberID        uuid.UUID `json:"member_id"`
	Temperature     *float64  `json:"temperature"`
	SymptomsPresent bool      `json:"symptoms_present"`
	CloseContact    bool      `json:"close_contact"`
	ChronicDisease  bool      `json:"chronic_disease"`
}

func (in ObservationInput) validate() error {
	if in.MemberID == uuid.Nil {
		return fieldError("member_id is required")
	}
	if in.Temperature != nil && (math.IsNaN(*in.Temperature) || math.IsInf(*in.Temperature, 0)) {
		return fieldError("temperature must be a finite number")
	}
	return nil
}

func (in ObservationInput) riskInput() risk.Input {
	return risk.Input{
		Temperature:     in.Temperature,
		SymptomsPresent: in.SymptomsPresent,
		CloseContact:    in.CloseContact,
		ChronicDisease:  in.ChronicDisease,
	}
}

// apply sets the raw fields on o and overwrites the derived ones.
func (in ObservationInput) apply(o *Observation) {
	o.MemberID = in.MemberID
	o.Temperature = in.Temperature
	o.SymptomsPresent = in.SymptomsPresent
	o.CloseContact = in.CloseContact
	o.ChronicDisease = in.ChronicDisease

	a := risk.Assess(in.riskInput())
	o.RiskScore = a.Score
	o.RiskLevel = a.Level
	o.Recommendation = a.Recommendation
}

func fieldError(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }

// ListFilter narrows an observation listing. Zero values match everything.
type ListFilter struct {
	MemberID   *uuid.UUID
	Level      risk.Level
	MemberName string
}
