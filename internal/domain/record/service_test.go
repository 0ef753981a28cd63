package record

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"childhealth/internal/model"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, rec *Record) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, rec *Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) GetByHealthID(ctx context.Context, healthID string) (*Record, error) {
	args := m.Called(ctx, healthID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]Record, int, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]Record), args.Int(1), args.Error(2)
}

// memRepo keeps rows keyed by health id, like the unique index does.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]Record
	seq  int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]Record)}
}

func (r *memRepo) Upsert(_ context.Context, rec *Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.rows[rec.HealthID]
	if ok {
		rec.ID = old.ID
	} else {
		r.seq++
		rec.ID = r.seq
	}
	r.rows[rec.HealthID] = *rec
	return !ok, nil
}

func (r *memRepo) Update(ctx context.Context, rec *Record) error {
	_, err := r.Upsert(ctx, rec)
	return err
}

func (r *memRepo) GetByHealthID(_ context.Context, healthID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[healthID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string, offset, limit int) ([]Record, int, error) {
	return nil, 0, nil
}

func validRecord(localID, healthID string) model.Record {
	return model.Record{
		LocalID:      localID,
		HealthID:     healthID,
		ChildName:    "Asha",
		Age:          "4",
		Gender:       "female",
		Weight:       "15.2",
		Height:       "101",
		GuardianName: "Ravi",
		Phone:        "9876543210",
	}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name        string
		created     bool
		wantUpdated bool
	}{
		{name: "new health id is created", created: true, wantUpdated: false},
		{name: "existing health id is updated", created: false, wantUpdated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default())

			mockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *Record) bool {
				return r.HealthID == "H1"
			})).Return(tt.created, nil)

			res, err := service.Create(context.Background(), validRecord("L1", "H1"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdated, res.Updated)
			assert.Equal(t, "H1", res.Record.HealthID)

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Create_Validation(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	in := validRecord("L1", "H1")
	in.ChildName = ""

	_, err := service.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "childName: required")

	mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestService_Create_DuplicateKeyRetriesAsUpdate(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, ErrDuplicateKey).Once()
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := service.Create(context.Background(), validRecord("L1", "H1"))
	require.NoError(t, err)
	assert.True(t, res.Updated)

	mockRepo.AssertExpectations(t)
}

func TestService_Create_DuplicateKeyRetriedOnlyOnce(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, ErrDuplicateKey).Once()
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(ErrDuplicateKey).Once()

	_, err := service.Create(context.Background(), validRecord("L1", "H1"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Update", 1)
}

func TestService_Create_StorageErrorNotRetried(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, errors.New("connection reset")).Once()

	_, err := service.Create(context.Background(), validRecord("L1", "H1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_Create_LaterSubmissionWins(t *testing.T) {
	orders := []struct {
		name   string
		first  string
		second string
	}{
		{name: "A then B", first: "Asha", second: "Bina"},
		{name: "B then A", first: "Bina", second: "Asha"},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			service := NewService(repo, slog.Default())
			ctx := context.Background()

			first := validRecord("L1", "H1")
			first.ChildName = tt.first
			second := validRecord("L2", "H1")
			second.ChildName = tt.second

			res1, err := service.Create(ctx, first)
			require.NoError(t, err)
			assert.False(t, res1.Updated)

			res2, err := service.Create(ctx, second)
			require.NoError(t, err)
			assert.True(t, res2.Updated)

			assert.Len(t, repo.rows, 1)
			stored, err := service.Get(ctx, "H1")
			require.NoError(t, err)
			assert.Equal(t, tt.second, stored.ChildName)
		})
	}
}

func TestService_BatchCreate_PartialFailure(t *testing.T) {
	repo := newMemRepo()
	service := NewService(repo, slog.Default())

	invalid := validRecord("L3", "H3")
	invalid.Phone = ""

	recs := []model.Record{
		validRecord("L1", "H1"),
		validRecord("L2", "H2"),
		invalid,
		validRecord("L4", "H4"),
	}

	res := service.BatchCreate(context.Background(), recs)

	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Successful, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "L3", res.Failed[0].Record.LocalID)
	assert.Contains(t, res.Failed[0].Error, "phone")

	var ids []string
	for _, r := range res.Successful {
		ids = append(ids, r.LocalID)
	}
	assert.Equal(t, []string{"L1", "L2", "L4"}, ids)
}

func TestService_BatchCreate_Empty(t *testing.T) {
	service := NewService(newMemRepo(), slog.Default())

	res := service.BatchCreate(context.Background(), nil)

	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Successful)
	assert.NotNil(t, res.Failed)
}

func TestService_ListByOwner(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int
		wantOffset int
		wantLimit  int
		want       Pagination
	}{
		{
			name: "defaults", page: 0, limit: 0, total: 3,
			wantOffset: 0, wantLimit: 10,
			want: Pagination{Page: 1, Limit: 10, Total: 3, TotalPages: 1},
		},
		{
			name: "middle page", page: 2, limit: 10, total: 25,
			wantOffset: 10, wantLimit: 10,
			want: Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasNext: true, HasPrev: true},
		},
		{
			name: "limit capped", page: 1, limit: 500, total: 150,
			wantOffset: 0, wantLimit: 100,
			want: Pagination{Page: 1, Limit: 100, Total: 150, TotalPages: 2, HasNext: true},
		},
		{
			name: "no records", page: 1, limit: 10, total: 0,
			wantOffset: 0, wantLimit: 10,
			want: Pagination{Page: 1, Limit: 10, Total: 0, TotalPages: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default())

			mockRepo.On("ListByOwner", mock.Anything, "owner-1", tt.wantOffset, tt.wantLimit).
				Return(nil, tt.total, nil)

			page, err := service.ListByOwner(context.Background(), "owner-1", tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Pagination)
			assert.NotNil(t, page.Records)

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Get_NotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("GetByHealthID", mock.Anything, "missing").Return(nil, ErrNotFound)

	_, err := service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
