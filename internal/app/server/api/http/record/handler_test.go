package record

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"childhealth/internal/app/server/api/http/middleware/auth"
	"childhealth/internal/domain/record"
	"childhealth/internal/domain/session"
	"childhealth/internal/model"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, rec model.Record) (record.CreateResult, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(record.CreateResult), args.Error(1)
}

func (m *MockService) BatchCreate(ctx context.Context, recs []model.Record) record.BatchResult {
	args := m.Called(ctx, recs)
	return args.Get(0).(record.BatchResult)
}

func (m *MockService) ListByOwner(ctx context.Context, ownerID string, page, limit int) (record.Page, error) {
	args := m.Called(ctx, ownerID, page, limit)
	return args.Get(0).(record.Page), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, healthID string) (*record.Record, error) {
	args := m.Called(ctx, healthID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

var principal = session.Principal{UserID: 1, OwnerID: "owner-1", Name: "Asha", EmployeeID: "EMP001"}

func authCtx() context.Context {
	return auth.WithPrincipal(context.Background(), principal)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected huma status error, got %v", err)
	return se.GetStatus()
}

func TestHandler_create(t *testing.T) {
	in := model.Record{LocalID: "L1", HealthID: "H1", ChildName: "Arjun"}

	t.Run("new record", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(r model.Record) bool {
			return r.HealthID == "H1" && r.UploaderOwnerID == "owner-1" && r.UploadedBy == "Asha" && r.UploadedAt != ""
		})).Return(record.CreateResult{Record: record.Record{Record: in, ID: 10}}, nil)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.create(authCtx(), &createInput{Body: in})

		require.NoError(t, err)
		assert.True(t, out.Body.Success)
		assert.Empty(t, out.Body.UpdateType)
		assert.Equal(t, int64(10), out.Body.Data.ID)
		svc.AssertExpectations(t)
	})

	t.Run("existing record reports update", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(record.CreateResult{Record: record.Record{Record: in}, Updated: true}, nil)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.create(authCtx(), &createInput{Body: in})

		require.NoError(t, err)
		assert.True(t, out.Body.Success)
		assert.Equal(t, "updated", out.Body.UpdateType)
	})

	t.Run("client uploader fields are kept", func(t *testing.T) {
		svc := new(MockService)
		withOwner := in
		withOwner.UploaderOwnerID = "owner-9"
		svc.On("Create", mock.Anything, mock.MatchedBy(func(r model.Record) bool {
			return r.UploaderOwnerID == "owner-9"
		})).Return(record.CreateResult{}, nil)
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.create(authCtx(), &createInput{Body: withOwner})

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(record.CreateResult{}, &record.ValidationError{Fields: []string{"phone: required"}})
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.create(authCtx(), &createInput{Body: in})

		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		assert.Contains(t, err.Error(), "phone: required")
	})

	t.Run("storage error", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.Anything).Return(record.CreateResult{}, errors.New("db down"))
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.create(authCtx(), &createInput{Body: in})

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewHandler(new(MockService), slog.Default(), nil)

		_, err := h.create(context.Background(), &createInput{Body: in})

		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

func TestHandler_batchCreate(t *testing.T) {
	t.Run("partial failure is reported per record", func(t *testing.T) {
		recs := []model.Record{{LocalID: "L1", HealthID: "H1"}, {LocalID: "L2"}}
		result := record.BatchResult{
			Successful: []record.Record{{Record: recs[0]}},
			Failed:     []record.BatchFailure{{Record: recs[1], Error: "healthId: required"}},
			Total:      2,
		}
		svc := new(MockService)
		svc.On("BatchCreate", mock.Anything, mock.MatchedBy(func(rs []model.Record) bool {
			return len(rs) == 2 && rs[0].UploaderOwnerID == "owner-1" && rs[1].UploaderOwnerID == "owner-1"
		})).Return(result)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.batchCreate(authCtx(), &batchInput{Body: batchRequest{Records: recs}})

		require.NoError(t, err)
		assert.True(t, out.Body.Success)
		assert.Equal(t, 2, out.Body.Data.Total)
		assert.Len(t, out.Body.Data.Successful, 1)
		assert.Len(t, out.Body.Data.Failed, 1)
		assert.Equal(t, "Processed 2 records: 1 successful, 1 failed", out.Body.Message)
	})

	t.Run("empty batch", func(t *testing.T) {
		h := NewHandler(new(MockService), slog.Default(), nil)

		_, err := h.batchCreate(authCtx(), &batchInput{})

		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("oversized batch", func(t *testing.T) {
		h := NewHandler(new(MockService), slog.Default(), nil)
		recs := make([]model.Record, maxBatchSize+1)

		_, err := h.batchCreate(authCtx(), &batchInput{Body: batchRequest{Records: recs}})

		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestHandler_list(t *testing.T) {
	tests := []struct {
		name       string
		ownerID    string
		wantOwner  string
		wantStatus int
	}{
		{name: "defaults to caller", ownerID: "", wantOwner: "owner-1"},
		{name: "explicit caller", ownerID: "owner-1", wantOwner: "owner-1"},
		{name: "other owner forbidden", ownerID: "owner-2", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ListByOwner", mock.Anything, tt.wantOwner, 2, 5).Return(record.Page{
				Records:    []record.Record{{Record: model.Record{HealthID: "H1"}}},
				Pagination: record.Pagination{Page: 2, Limit: 5, Total: 6, TotalPages: 2, HasPrev: true},
			}, nil).Maybe()
			h := NewHandler(svc, slog.Default(), nil)

			out, err := h.list(authCtx(), &listInput{OwnerID: tt.ownerID, Page: 2, Limit: 5})

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				svc.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.True(t, out.Body.Success)
			assert.Len(t, out.Body.Data.Records, 1)
			assert.True(t, out.Body.Data.Pagination.HasPrev)
		})
	}
}

func TestHandler_find(t *testing.T) {
	own := &record.Record{Record: model.Record{HealthID: "H1", UploaderOwnerID: "owner-1"}}
	foreign := &record.Record{Record: model.Record{HealthID: "H2", UploaderOwnerID: "owner-2"}}

	svc := new(MockService)
	svc.On("Get", mock.Anything, "H1").Return(own, nil)
	svc.On("Get", mock.Anything, "H2").Return(foreign, nil)
	svc.On("Get", mock.Anything, "H3").Return(nil, fmt.Errorf("get H3: %w", record.ErrNotFound))
	h := NewHandler(svc, slog.Default(), nil)

	out, err := h.find(authCtx(), &findInput{HealthID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, "H1", out.Body.Data.HealthID)

	_, err = h.find(authCtx(), &findInput{HealthID: "H2"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = h.find(authCtx(), &findInput{HealthID: "H3"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestHandler_Routes(t *testing.T) {
	svc := new(MockService)
	svc.On("BatchCreate", mock.Anything, mock.Anything).Return(record.BatchResult{
		Successful: []record.Record{{Record: model.Record{LocalID: "L1", HealthID: "H1"}}},
		Failed:     []record.BatchFailure{},
		Total:      1,
	})

	inject := func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithPrincipal(ctx.Context(), principal)))
	}

	_, api := humatest.New(t)
	NewHandler(svc, slog.Default(), huma.Middlewares{inject}).SetupRoutes(api)

	resp := api.Post("/api/v1/records/batch", map[string]any{
		"records": []map[string]any{{"localId": "L1", "healthId": "H1"}},
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"localId":"L1"`)
	assert.Contains(t, body, `"total":1`)
}
