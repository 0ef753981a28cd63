package user

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"childhealth/internal/app/server/api/http/middleware/auth"
	"childhealth/internal/domain/session"
	"childhealth/internal/domain/user"
)

type Handler struct {
	service        user.Servicer
	session        session.Servicer
	log            *slog.Logger
	middleware     huma.Middlewares
	authMiddleware huma.Middlewares
}

// NewHandler takes the public chain for register/login and the authenticated
// chain for logout.
func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, public, authed huma.Middlewares) *Handler {
	return &Handler{
		service:        service,
		session:        session,
		log:            log,
		middleware:     public,
		authMiddleware: authed,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	u, err := h.service.Register(ctx, input.Body)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, user.ErrAlreadyExists):
			return nil, huma.Error409Conflict("Employee already registered")
		}
		h.log.Error("register failed", "employee_id", input.Body.EmployeeID, "error", err)
		return nil, huma.Error500InternalServerError("Registration failed")
	}

	return &registerOutput{
		Body: RegisterResponse{
			Success: true,
			Message: "User registered successfully",
			User:    toView(u),
		},
	}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.EmployeeID, input.Body.UIN)
	if err != nil {
		if errors.Is(err, user.ErrInvalidAuth) || errors.Is(err, user.ErrNotFound) {
			return nil, huma.Error401Unauthorized("Invalid credentials")
		}
		h.log.Error("login failed", "employee_id", input.Body.EmployeeID, "error", err)
		return nil, huma.Error500InternalServerError("Login failed")
	}

	token, err := h.session.Create(ctx, u.ID)
	if err != nil {
		h.log.Error("create session", "user_id", u.ID, "error", err)
		return nil, huma.Error500InternalServerError("Login failed")
	}

	return &loginOutput{
		Body: LoginResponse{
			Success: true,
			Token:   token,
			User:    toView(u),
		},
	}, nil
}

func (h *Handler) logout(ctx context.Context, _ *struct{}) (*logoutOutput, error) {
	token, ok := auth.GetToken(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.session.Revoke(ctx, token); err != nil {
		h.log.Error("revoke session", "error", err)
		return nil, huma.Error500InternalServerError("Logout failed")
	}

	return &logoutOutput{
		Body: LogoutResponse{Success: true, Message: "Logged out"},
	}, nil
}
