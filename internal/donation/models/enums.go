package models

import (
	dErrors "givebridge/pkg/domain-errors"
)

// Status is the lifecycle position of a donation.
type Status string

const (
	StatusAvailable Status = "available"
	StatusAccepted  Status = "accepted"
	StatusCollected Status = "collected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus rejects anything outside the five lifecycle values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusAccepted, StatusCollected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsAssigned reports whether an NGO must be recorded while in s.
func (s Status) IsAssigned() bool {
	return s == StatusAccepted || s == StatusCollected || s == StatusCompleted
}

func (s Status) String() string { return string(s) }

// Category selects the variant details a donation carries.
type Category string

const (
	CategoryFood        Category = "food"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryElectronics Category = "electronics"
	CategoryFinancial   Category = "financial"
	CategoryOther       Category = "other"
)

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown category %q", s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryClothing, CategoryBooks, CategoryElectronics, CategoryFinancial, CategoryOther:
		return true
	}
	return false
}

// IsItem reports whether c is a physical goods category carrying a quantity.
func (c Category) IsItem() bool {
	switch c {
	case CategoryClothing, CategoryBooks, CategoryElectronics, CategoryOther:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// Urgency is informational and never affects transitions.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) IsValid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

func (u Urgency) String() string { return string(u) }

// PickupOption says whether the NGO collects or the donor drops off.
type PickupOption string

const (
	PickupByNGO    PickupOption = "pickup"
	DropoffByDonor PickupOption = "dropoff"
)

func (p PickupOption) IsValid() bool {
	return p == PickupByNGO || p == DropoffByDonor
}

func (p PickupOption) String() string { return string(p) }
