package record

import (
	"childhealth/internal/domain/record"
	"childhealth/internal/model"
)

type createInput struct {
	Body model.Record
}

type createOutput struct {
	Body createResponse
}

type createResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Data       record.Record `json:"data"`
	UpdateType string        `json:"_updateType,omitempty" enum:"updated"`
}

type batchInput struct {
	Body batchRequest
}

type batchRequest struct {
	Records []model.Record `json:"records" doc:"Records to upsert in order"`
}

type batchOutput struct {
	Body batchResponse
}

type batchResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    record.BatchResult `json:"data"`
}

type listInput struct {
	OwnerID string `query:"ownerId" doc:"Owner whose records to list; defaults to the caller"`
	Page    int    `query:"page" minimum:"0" default:"1"`
	Limit   int    `query:"limit" minimum:"0" default:"10"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Success bool        `json:"success"`
	Data    record.Page `json:"data"`
}

type findInput struct {
	HealthID string `path:"healthId" example:"CH-ASH-20240105103000-1a2b3c"`
}

type findOutput struct {
	Body findResponse
}

type findResponse struct {
	Success bool          `json:"success"`
	Data    record.Record `json:"data"`
}
