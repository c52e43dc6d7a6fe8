package models

import (
	"time"
	"unicode/utf8"

	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	pstrings "givebridge/pkg/platform/strings"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxImages            = 5

	// DefaultFoodMinLead is how far in the future a food expiry must lie at creation.
	DefaultFoodMinLead = 3 * time.Hour
)

// Donation is the aggregate root for an offered item or pledge.
//
// Invariants:
//   - Status is one of the five lifecycle values
//   - AcceptedBy is set iff Status is accepted, collected or completed
//   - AcceptedAt, CollectedAt, CompletedAt and CancelledAt are first-write-wins
//   - CancellationReason is set only while Status is cancelled
//   - Details matches Category (food, financial or item variant)
//   - ID, DonorID, Category and CreatedAt are immutable after construction
//   - Version starts at 1 and increments on every persisted change
type Donation struct {
	ID           id.DonationID
	DonorID      id.UserID
	Category     Category
	Title        string
	Description  string
	Location     Location
	PickupOption PickupOption
	Urgency      Urgency
	Images       []string
	Details      Details

	Status             Status
	AcceptedBy         *id.UserID
	AcceptedAt         *time.Time
	CollectedAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// NewDonationParams is the unvalidated input of createDonation.
type NewDonationParams struct {
	Category     string
	Title        string
	Description  string
	Quantity     *int
	Location     Location
	PickupOption string
	FoodExpiry   *time.Time
	Amount       *string
	Urgency      string
	Images       []string
}

// NewDonation validates params and returns an available donation owned by
// donorID. Every violated field is reported, not only the first.
func NewDonation(donationID id.DonationID, donorID id.UserID, params NewDonationParams, now time.Time, foodMinLead time.Duration) (*Donation, error) {
	var v violations

	if donorID.IsNil() {
		v.add("donorId", "donor is required")
	}

	category := Category(params.Category)
	if params.Category == "" {
		v.add("category", "category is required")
	} else if !category.IsValid() {
		v.add("category", "category must be one of food, clothing, books, electronics, financial, other")
	}

	switch n := utf8.RuneCountInString(params.Title); {
	case n == 0:
		v.add("title", "title is required")
	case n > MaxTitleLength:
		v.add("title", "title must be 120 characters or less")
	}
	if utf8.RuneCountInString(params.Description) > MaxDescriptionLength {
		v.add("description", "description must be 2000 characters or less")
	}

	loc := params.Location
	if loc.Address == "" {
		v.add("location.address", "address is required")
	}
	if loc.Lat < -90 || loc.Lat > 90 {
		v.add("location.lat", "latitude must be between -90 and 90")
	}
	if loc.Lng < -180 || loc.Lng > 180 {
		v.add("location.lng", "longitude must be between -180 and 180")
	}

	pickup := PickupOption(params.PickupOption)
	if pickup == "" {
		pickup = PickupByNGO
	} else if !pickup.IsValid() {
		v.add("pickupOption", "pickupOption must be pickup or dropoff")
	}

	urgency := Urgency(params.Urgency)
	if urgency == "" {
		urgency = UrgencyMedium
	} else if !urgency.IsValid() {
		v.add("urgency", "urgency must be low, medium or high")
	}

	images := pstrings.DedupeAndTrim(params.Images)
	if len(images) > MaxImages {
		v.add("images", "at most 5 images are allowed")
	}

	if params.Quantity != nil && *params.Quantity < 1 {
		v.add("quantity", "quantity must be at least 1")
	}
	quantity := 1
	if params.Quantity != nil {
		quantity = *params.Quantity
	}

	var details Details
	switch {
	case category == CategoryFood:
		switch {
		case params.FoodExpiry == nil:
			v.add("foodExpiry", "foodExpiry is required for food donations")
		case !params.FoodExpiry.After(now.Add(foodMinLead)):
			v.add("foodExpiry", "foodExpiry must be more than "+foodMinLead.String()+" in the future")
		default:
			details = FoodDetails{Expiry: params.FoodExpiry.UTC(), Quantity: quantity}
		}
	case category == CategoryFinancial:
		if params.Amount == nil {
			v.add("amount", "amount is required for financial donations")
			break
		}
		cents, err := ParseAmount(*params.Amount)
		if err != nil {
			v.add("amount", err.Error())
			break
		}
		details = FinancialDetails{AmountCents: cents}
	case category.IsItem():
		details = ItemDetails{Quantity: quantity}
	}

	if err := v.err("invalid donation"); err != nil {
		return nil, err
	}

	return &Donation{
		ID:           donationID,
		DonorID:      donorID,
		Category:     category,
		Title:        params.Title,
		Description:  params.Description,
		Location:     loc,
		PickupOption: pickup,
		Urgency:      urgency,
		Images:       images,
		Details:      details,
		Status:       StatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}, nil
}

// IsOwnedBy reports whether userID created the donation.
func (d *Donation) IsOwnedBy(userID id.UserID) bool {
	return d.DonorID == userID
}

// IsAssignedTo reports whether userID is the NGO that accepted the donation.
func (d *Donation) IsAssignedTo(userID id.UserID) bool {
	return d.AcceptedBy != nil && *d.AcceptedBy == userID
}

// CanView applies the read visibility rule: available donations are public
// to authenticated callers, everything else only to the parties and admins.
func (d *Donation) CanView(p id.Principal) bool {
	if d.Status == StatusAvailable || p.IsAdmin() {
		return true
	}
	return d.IsOwnedBy(p.ID) || d.IsAssignedTo(p.ID)
}

// CanDelete checks the owner-only removal rule.
func (d *Donation) CanDelete(p id.Principal) error {
	if !p.IsAdmin() && !(p.IsDonor() && d.IsOwnedBy(p.ID)) {
		return dErrors.New(dErrors.CodeForbidden, "only the owning donor may delete this donation")
	}
	if d.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "donation in %s state cannot be deleted", d.Status)
	}
	return nil
}

// CheckInvariants verifies the aggregate invariants hold.
func (d *Donation) CheckInvariants() error {
	if !d.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "invalid status %q", d.Status)
	}
	if d.Status.IsAssigned() != (d.AcceptedBy != nil) {
		return dErrors.New(dErrors.CodeInvariantViolation, "acceptedBy must be set exactly while assigned")
	}
	if d.AcceptedBy != nil && d.AcceptedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "acceptedAt missing for assigned donation")
	}
	if d.CancellationReason != nil && d.Status != StatusCancelled {
		return dErrors.New(dErrors.CodeInvariantViolation, "cancellationReason set outside cancelled state")
	}
	if d.Status == StatusCancelled && d.CancelledAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "cancelledAt missing for cancelled donation")
	}
	switch det := d.Details.(type) {
	case FoodDetails:
		if d.Category != CategoryFood {
			return dErrors.New(dErrors.CodeInvariantViolation, "food details on non-food donation")
		}
	case FinancialDetails:
		if d.Category != CategoryFinancial || det.AmountCents <= 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "financial donation requires positive amount")
		}
	case ItemDetails:
		if !d.Category.IsItem() {
			return dErrors.New(dErrors.CodeInvariantViolation, "item details on non-item donation")
		}
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "donation details missing")
	}
	return nil
}

type violations []dErrors.FieldError

func (v *violations) add(field, msg string) {
	*v = append(*v, dErrors.FieldError{Field: field, Message: msg})
}

func (v violations) err(msg string) error {
	if len(v) == 0 {
		return nil
	}
	return dErrors.Validation(msg, v)
}
