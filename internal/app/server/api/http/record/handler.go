package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"childhealth/internal/app/server/api/http/middleware/auth"
	"childhealth/internal/domain/record"
	"childhealth/internal/domain/session"
	"childhealth/internal/model"
)

const maxBatchSize = 500

type Handler struct {
	service    record.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service record.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.batchCreateOp(), h.batchCreate)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*createOutput, error) {
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	res, err := h.service.Create(ctx, withUploader(input.Body, p))
	if err != nil {
		var verr *record.ValidationError
		if errors.As(err, &verr) {
			return nil, huma.Error400BadRequest(verr.Error())
		}
		h.log.Error("create record", "health_id", input.Body.HealthID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to save record")
	}

	out := &createOutput{
		Body: createResponse{
			Success: true,
			Message: "Record created successfully",
			Data:    res.Record,
		},
	}
	if res.Updated {
		out.Body.Message = "Record updated successfully"
		out.Body.UpdateType = "updated"
	}

	return out, nil
}

func (h *Handler) batchCreate(ctx context.Context, input *batchInput) (*batchOutput, error) {
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if len(input.Body.Records) == 0 {
		return nil, huma.Error400BadRequest("records must be a non-empty array")
	}
	if len(input.Body.Records) > maxBatchSize {
		return nil, huma.Error400BadRequest(fmt.Sprintf("at most %d records per batch", maxBatchSize))
	}

	recs := make([]model.Record, len(input.Body.Records))
	for i, rec := range input.Body.Records {
		recs[i] = withUploader(rec, p)
	}

	res := h.service.BatchCreate(ctx, recs)

	h.log.Info("batch processed",
		"owner_id", p.OwnerID,
		"total", res.Total,
		"successful", len(res.Successful),
		"failed", len(res.Failed),
	)

	return &batchOutput{
		Body: batchResponse{
			Success: true,
			Message: fmt.Sprintf("Processed %d records: %d successful, %d failed",
				res.Total, len(res.Successful), len(res.Failed)),
			Data: res,
		},
	}, nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	ownerID := input.OwnerID
	if ownerID == "" {
		ownerID = p.OwnerID
	}
	if ownerID != p.OwnerID {
		return nil, huma.Error403Forbidden("Records of another owner are not accessible")
	}

	page, err := h.service.ListByOwner(ctx, ownerID, input.Page, input.Limit)
	if err != nil {
		h.log.Error("list records", "owner_id", ownerID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to list records")
	}

	return &listOutput{
		Body: listResponse{Success: true, Data: page},
	}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	rec, err := h.service.Get(ctx, input.HealthID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, huma.Error404NotFound("Record not found")
		}
		h.log.Error("find record", "health_id", input.HealthID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to load record")
	}
	if rec.UploaderOwnerID != p.OwnerID {
		return nil, huma.Error404NotFound("Record not found")
	}

	return &findOutput{
		Body: findResponse{Success: true, Data: *rec},
	}, nil
}

// withUploader fills uploader fields the client left empty from the session.
func withUploader(rec model.Record, p session.Principal) model.Record {
	if rec.UploaderOwnerID == "" {
		rec.UploaderOwnerID = p.OwnerID
	}
	if rec.UploadedBy == "" {
		rec.UploadedBy = p.Name
	}
	if rec.UploaderEmployeeID == "" {
		rec.UploaderEmployeeID = p.EmployeeID
	}
	if rec.UploadedAt == "" {
		rec.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return rec
}
