package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/exp/slog"

	"childhealth/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	meterName = "childhealth/record"
)

type Servicer interface {
	Create(ctx context.Context, rec model.Record) (CreateResult, error)
	BatchCreate(ctx context.Context, recs []model.Record) BatchResult
	ListByOwner(ctx context.Context, ownerID string, page, limit int) (Page, error)
	Get(ctx context.Context, healthID string) (*Record, error)
}

// Service implements upsert-by-health-id on top of a Repository.
type Service struct {
	repo       Repository
	log        *slog.Logger
	retryDelay time.Duration
	outcomes   metric.Int64Counter
}

func NewService(repo Repository, log *slog.Logger) *Service {
	outcomes, err := otel.Meter(meterName).Int64Counter("childhealth.records.outcomes",
		metric.WithDescription("Record upsert outcomes by kind"),
	)
	if err != nil {
		log.Warn("record outcome counter unavailable", "error", err)
	}

	return &Service{
		repo:       repo,
		log:        log.With("component", "record_service"),
		retryDelay: 50 * time.Millisecond,
		outcomes:   outcomes,
	}
}

// Create validates rec and stores it, replacing any record with the same health id.
// A duplicate-key error from storage is retried once as a plain update.
func (s *Service) Create(ctx context.Context, in model.Record) (CreateResult, error) {
	if err := Validate(in); err != nil {
		s.count(ctx, "failed")
		return CreateResult{}, err
	}

	rec := &Record{Record: in}
	created := false
	attempt := 0

	op := func() error {
		attempt++
		var err error
		if attempt == 1 {
			created, err = s.repo.Upsert(ctx, rec)
		} else {
			s.log.Warn("retrying as update", "health_id", rec.HealthID)
			created = false
			err = s.repo.Update(ctx, rec)
		}
		if err == nil || errors.Is(err, ErrDuplicateKey) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		s.count(ctx, "failed")
		return CreateResult{}, fmt.Errorf("upsert %s: %w", in.HealthID, err)
	}

	if created {
		s.count(ctx, "created")
	} else {
		s.count(ctx, "updated")
	}
	s.log.Debug("record stored", "health_id", rec.HealthID, "created", created)

	return CreateResult{Record: *rec, Updated: !created}, nil
}

// BatchCreate applies Create to every record in order. One failure never stops the rest.
func (s *Service) BatchCreate(ctx context.Context, recs []model.Record) BatchResult {
	res := BatchResult{
		Successful: make([]Record, 0, len(recs)),
		Failed:     make([]BatchFailure, 0),
		Total:      len(recs),
	}

	for _, in := range recs {
		out, err := s.Create(ctx, in)
		if err != nil {
			s.log.Info("batch entry rejected", "local_id", in.LocalID, "health_id", in.HealthID, "error", err)
			res.Failed = append(res.Failed, BatchFailure{Record: in, Error: err.Error()})
			continue
		}
		// Successful entries carry the client correlation id back.
		out.Record.LocalID = in.LocalID
		res.Successful = append(res.Successful, out.Record)
	}

	return res
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string, page, limit int) (Page, error) {
	page, limit = normalizePage(page, limit)

	records, total, err := s.repo.ListByOwner(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list records of %s: %w", ownerID, err)
	}
	if records == nil {
		records = []Record{}
	}

	return Page{
		Records:    records,
		Pagination: paginate(page, limit, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, healthID string) (*Record, error) {
	rec, err := s.repo.GetByHealthID(ctx, healthID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", healthID, err)
	}
	return rec, nil
}

func (s *Service) count(ctx context.Context, outcome string) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func paginate(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
