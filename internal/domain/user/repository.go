package user

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u User) (int, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (User, error)
}
