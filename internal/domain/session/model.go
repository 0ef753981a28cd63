package session

import "errors"

var ErrInvalidSession = errors.New("invalid session")

// Principal is the authenticated caller behind a session token.
type Principal struct {
	UserID     int
	OwnerID    string
	Name       string
	EmployeeID string
}
