package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"childhealth/internal/domain/session"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Create(ctx context.Context, userID int) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Validate(ctx context.Context, token string) (session.Principal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(session.Principal), args.Error(1)
}

func (m *MockSession) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type whoamiOutput struct {
	Body struct {
		OwnerID string `json:"ownerId"`
		Token   string `json:"token"`
	}
}

func setup(t *testing.T, svc session.Servicer) humatest.TestAPI {
	_, api := humatest.New(t)
	mw := New(svc, slog.Default())

	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{mw.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		p, ok := GetPrincipal(ctx)
		if !ok {
			return nil, huma.Error500InternalServerError("no principal")
		}
		token, _ := GetToken(ctx)
		out := &whoamiOutput{}
		out.Body.OwnerID = p.OwnerID
		out.Body.Token = token
		return out, nil
	})

	return api
}

func TestAuth_Middleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setupMock  func(*MockSession)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing header",
			header:     "",
			setupMock:  func(*MockSession) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			setupMock:  func(*MockSession) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:   "expired session",
			header: "Bearer stale",
			setupMock: func(m *MockSession) {
				m.On("Validate", mock.Anything, "stale").Return(session.Principal{}, session.ErrInvalidSession)
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:   "valid session",
			header: "Bearer good",
			setupMock: func(m *MockSession) {
				m.On("Validate", mock.Anything, "good").Return(session.Principal{UserID: 1, OwnerID: "owner-1"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"ownerId":"owner-1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSession)
			tt.setupMock(svc)
			api := setup(t, svc)

			var args []any
			if tt.header != "" {
				args = append(args, "Authorization: "+tt.header)
			}
			resp := api.Get("/whoami", args...)

			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := GetPrincipal(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), session.Principal{OwnerID: "o"})
	p, ok := GetPrincipal(ctx)
	assert.True(t, ok)
	assert.Equal(t, "o", p.OwnerID)
}
