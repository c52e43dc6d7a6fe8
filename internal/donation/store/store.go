// Package store holds the donation persistence adapters. Every adapter
// guards writes with the donation version and reports missing records as
// sentinel.ErrNotFound and stale writes as sentinel.ErrConflict.
package store
