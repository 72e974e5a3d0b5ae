package models

import "strings"

// DateLayout is the calendar date format used for every date cell and payload field.
const DateLayout = "2006-01-02"

const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Member represents a registered member of a sports club
type Member struct {
	ID         string   `json:"id"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Place      string   `json:"place"`
	JoinDate   string   `json:"joinDate"`
	Status     string   `json:"status"`
	ExpiryDate *string  `json:"expiryDate"` // nil when the member never paid
	Sports     []string `json:"sports"`
	Notes      string   `json:"notes"`
}

// FullName joins first and last name, skipping empty parts.
func (m Member) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
}

// IsActive reports whether the member status is active. An empty status counts as active.
func (m Member) IsActive() bool {
	return m.Status == "" || strings.EqualFold(m.Status, MemberStatusActive)
}
