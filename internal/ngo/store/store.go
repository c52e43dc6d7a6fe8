// Package store persists NGO profiles. Stores report missing rows with
// sentinel.ErrNotFound and duplicate ids or registration numbers with
// sentinel.ErrAlreadyUsed.
package store
