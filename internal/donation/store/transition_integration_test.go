//go:build integration

package store_test

import (
	"time"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
)

// advance moves d to to on behalf of p the way the lifecycle service does.
func advance(d *models.Donation, p id.Principal, to models.Status, now time.Time) error {
	if err := d.CanTransition(p, to); err != nil {
		return err
	}
	d.ApplyTransition(p, to, "", now)
	return nil
}
