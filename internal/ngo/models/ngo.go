package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/email"
)

const (
	MaxNameLength               = 200
	MaxRegistrationNumberLength = 64
	MaxRejectionReasonLength    = 500
)

// Status is the verification state of an NGO profile.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown ngo status %q", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusVerified || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// NGO is the aggregate root for an organization that collects donations.
//
// Invariants:
//   - ID equals the user id of the NGO principal that registered it
//   - Name, RegistrationNumber and ContactEmail are non-empty
//   - Status transitions: pending → verified | rejected, rejected → verified,
//     verified → rejected
//   - VerifiedAt is set iff Status is verified
//   - RejectionReason is set iff Status is rejected
type NGO struct {
	ID                 id.UserID
	Name               string
	RegistrationNumber string
	ContactEmail       string
	Status             Status
	RejectionReason    *string
	VerifiedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewNGO validates the profile fields and returns a pending NGO. Every
// violated field is reported.
func NewNGO(ngoID id.UserID, name, registrationNumber, contactEmail string, now time.Time) (*NGO, error) {
	var details []dErrors.FieldError
	add := func(field, msg string) {
		details = append(details, dErrors.FieldError{Field: field, Message: msg})
	}

	name = strings.TrimSpace(name)
	registrationNumber = strings.ToUpper(strings.TrimSpace(registrationNumber))

	if ngoID.IsNil() {
		add("id", "ngo id is required")
	}
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		add("name", "name is required")
	case n > MaxNameLength:
		add("name", "name must be 200 characters or less")
	}
	switch n := len(registrationNumber); {
	case n == 0:
		add("registrationNumber", "registrationNumber is required")
	case n > MaxRegistrationNumberLength:
		add("registrationNumber", "registrationNumber must be 64 characters or less")
	}
	normalized, ok := email.Normalize(contactEmail)
	if !ok {
		add("contactEmail", "contactEmail must be a valid email address")
	}
	if len(details) > 0 {
		return nil, dErrors.Validation("invalid ngo profile", details)
	}

	return &NGO{
		ID:                 ngoID,
		Name:               name,
		RegistrationNumber: registrationNumber,
		ContactEmail:       normalized,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (n *NGO) IsVerified() bool {
	return n.Status == StatusVerified
}

// CanVerify checks the profile may move to verified.
func (n *NGO) CanVerify() error {
	if n.Status == StatusVerified {
		return dErrors.New(dErrors.CodeInvalidTransition, "ngo is already verified")
	}
	return nil
}

// ApplyVerification marks the profile verified. Call CanVerify first.
func (n *NGO) ApplyVerification(now time.Time) {
	n.Status = StatusVerified
	n.RejectionReason = nil
	t := now
	n.VerifiedAt = &t
	n.UpdatedAt = now
}

func (n *NGO) Verify(now time.Time) error {
	if err := n.CanVerify(); err != nil {
		return err
	}
	n.ApplyVerification(now)
	return nil
}

// CanReject checks the profile may move to rejected with reason.
func (n *NGO) CanReject(reason string) error {
	if n.Status == StatusRejected {
		return dErrors.New(dErrors.CodeInvalidTransition, "ngo is already rejected")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.Validation("invalid rejection", []dErrors.FieldError{
			{Field: "reason", Message: "reason is required"},
		})
	}
	if utf8.RuneCountInString(reason) > MaxRejectionReasonLength {
		return dErrors.Validation("invalid rejection", []dErrors.FieldError{
			{Field: "reason", Message: "reason must be 500 characters or less"},
		})
	}
	return nil
}

// ApplyRejection marks the profile rejected. Call CanReject first.
func (n *NGO) ApplyRejection(reason string, now time.Time) {
	r := strings.TrimSpace(reason)
	n.Status = StatusRejected
	n.RejectionReason = &r
	n.VerifiedAt = nil
	n.UpdatedAt = now
}

func (n *NGO) Reject(reason string, now time.Time) error {
	if err := n.CanReject(reason); err != nil {
		return err
	}
	n.ApplyRejection(reason, now)
	return nil
}

// Clone returns a deep copy.
func (n *NGO) Clone() *NGO {
	c := *n
	if n.RejectionReason != nil {
		r := *n.RejectionReason
		c.RejectionReason = &r
	}
	if n.VerifiedAt != nil {
		t := *n.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}
