package user

import "childhealth/internal/domain/user"

type registerInput struct {
	Body user.RegisterRequest
}

type registerOutput struct {
	Body RegisterResponse
}

type RegisterResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

type loginInput struct {
	Body user.LoginRequest
}

type loginOutput struct {
	Body LoginResponse
}

type LoginResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

type logoutOutput struct {
	Body LogoutResponse
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserView is the public part of a user returned to clients.
type UserView struct {
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	EmployeeID string `json:"employeeId"`
}

func toView(u user.User) UserView {
	return UserView{Name: u.Name, OwnerID: u.OwnerID, EmployeeID: u.EmployeeID}
}
