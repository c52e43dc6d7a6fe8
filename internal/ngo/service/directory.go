package service

import (
	"context"

	"givebridge/internal/notification/sender"
	id "givebridge/pkg/domain"
)

// Directory resolves NGO ids to their registered contact for the mail
// sender. Users without an NGO profile yield sentinel.ErrNotFound.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) Lookup(ctx context.Context, userID id.UserID) (sender.Contact, error) {
	n, err := d.store.FindByID(ctx, userID)
	if err != nil {
		return sender.Contact{}, err
	}
	return sender.Contact{Email: n.ContactEmail, Name: n.Name}, nil
}
