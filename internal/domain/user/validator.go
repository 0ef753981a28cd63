package user

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	MinEmployeeIDLen = 3
	MaxEmployeeIDLen = 32
	MinUINLen        = 6
	MaxUINLen        = 16
)

// Validator checks registration and login input.
type Validator interface {
	ValidateRegister(req RegisterRequest) error
	ValidateEmployeeID(employeeID string) error
	ValidateUIN(uin string) error
}

type UINValidator struct {
	digitsOnly bool
}

func NewUINValidator() *UINValidator {
	return &UINValidator{digitsOnly: true}
}

func (v *UINValidator) ValidateRegister(req RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}

	if err := v.ValidateEmployeeID(req.EmployeeID); err != nil {
		return fmt.Errorf("employee id validation failed: %w", err)
	}

	if err := v.ValidateUIN(req.UIN); err != nil {
		return fmt.Errorf("uin validation failed: %w", err)
	}

	return nil
}

func (v *UINValidator) ValidateEmployeeID(employeeID string) error {
	if len(employeeID) < MinEmployeeIDLen {
		return fmt.Errorf("employee id must be at least %d characters", MinEmployeeIDLen)
	}

	if len(employeeID) > MaxEmployeeIDLen {
		return fmt.Errorf("employee id must be at most %d characters", MaxEmployeeIDLen)
	}

	for _, r := range employeeID {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return fmt.Errorf("employee id can only contain letters, digits, '_', '-', '.'")
		}
	}

	return nil
}

func (v *UINValidator) ValidateUIN(uin string) error {
	if len(uin) < MinUINLen || len(uin) > MaxUINLen {
		return fmt.Errorf("uin must be %d to %d characters", MinUINLen, MaxUINLen)
	}

	if v.digitsOnly {
		for _, r := range uin {
			if !unicode.IsDigit(r) {
				return fmt.Errorf("uin must contain digits only")
			}
		}
	}

	return nil
}
