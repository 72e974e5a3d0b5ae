package services

import (
	"time"

	"sports_club_backend/internal/repositories"
)

// RequestContext is attached to every dispatched action by the auth gate.
type RequestContext struct {
	Store     repositories.TabularStore
	ClubID    string // empty for the default store
	UserEmail string
	CanEdit   bool
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}
