package user

import "time"

// User is a registered health worker. OwnerID correlates uploaded records.
type User struct {
	ID         int
	OwnerID    string
	Name       string
	EmployeeID string
	UINHash    string
	CreatedAt  time.Time
}

type RegisterRequest struct {
	Name       string `json:"name" minLength:"1" doc:"Health worker name"`
	EmployeeID string `json:"employeeId" doc:"Employee id, used as login"`
	UIN        string `json:"uin" doc:"Unique identification number"`
}

type LoginRequest struct {
	EmployeeID string `json:"employeeId"`
	UIN        string `json:"uin" doc:"UIN or one-time code issued against it"`
}
