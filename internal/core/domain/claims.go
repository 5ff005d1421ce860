package domain

import "time"

// Claims is the verified identity extracted from a session token.
type Claims struct {
	UserID    int64
	Username  string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAssignee reports whether the caller is the user recorded in assignedTo.
// A nil assignee matches nobody.
func (c Claims) IsAssignee(assignedTo *int64) bool {
	return assignedTo != nil && *assignedTo == c.UserID
}
