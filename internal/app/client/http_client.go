package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/exp/slog"

	"childhealth/internal/app/client/syncer"
	"childhealth/internal/domain/record"
	"childhealth/internal/domain/user"
	"childhealth/internal/model"
)

const (
	userAgent      = "ChildHealth-Client/1.0"
	readRetryLimit = 10 * time.Second
)

// HTTPClient talks to the child health REST API. Every failure is returned
// as *syncer.TransportError.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("component", "http_client"),
	}
}

func (h *HTTPClient) HealthCheck(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return h.call(ctx, "health check", http.MethodGet, "/api/v1/health", "", nil, &out)
}

func (h *HTTPClient) Register(ctx context.Context, req user.RegisterRequest) (syncer.Identity, error) {
	var out struct {
		User userView `json:"user"`
	}
	if err := h.call(ctx, "register", http.MethodPost, "/api/v1/auth/register", "", req, &out); err != nil {
		return syncer.Identity{}, err
	}
	return out.User.identity(""), nil
}

// Login returns the identity of the signed in worker with its bearer token.
func (h *HTTPClient) Login(ctx context.Context, req user.LoginRequest) (syncer.Identity, error) {
	var out struct {
		Token string   `json:"token"`
		User  userView `json:"user"`
	}
	if err := h.call(ctx, "login", http.MethodPost, "/api/v1/auth/login", "", req, &out); err != nil {
		return syncer.Identity{}, err
	}
	if out.Token == "" {
		return syncer.Identity{}, &syncer.TransportError{Op: "login", Err: errors.New("empty token in response")}
	}
	return out.User.identity(out.Token), nil
}

func (h *HTTPClient) Logout(ctx context.Context, token string) error {
	return h.call(ctx, "logout", http.MethodPost, "/api/v1/auth/logout", token, nil, nil)
}

// Create upserts one record. It is attempted exactly once.
func (h *HTTPClient) Create(ctx context.Context, token string, rec model.Record) (syncer.CreateResult, error) {
	var out struct {
		Data       json.RawMessage `json:"data"`
		UpdateType string          `json:"_updateType"`
	}
	if err := h.call(ctx, "create record", http.MethodPost, "/api/v1/records", token, rec, &out); err != nil {
		return syncer.CreateResult{}, err
	}

	var saved model.Record
	if err := json.Unmarshal(out.Data, &saved); err != nil {
		return syncer.CreateResult{}, &syncer.TransportError{Op: "create record", Err: fmt.Errorf("decode data: %w", err)}
	}

	return syncer.CreateResult{
		Updated: out.UpdateType == "updated",
		Record:  saved,
		Raw:     out.Data,
	}, nil
}

// BatchCreate upserts recs in one request. It is attempted exactly once.
func (h *HTTPClient) BatchCreate(ctx context.Context, token string, recs []model.Record) (syncer.BatchResult, error) {
	req := struct {
		Records []model.Record `json:"records"`
	}{Records: recs}

	var out struct {
		Data struct {
			Successful []json.RawMessage `json:"successful"`
			Failed     []struct {
				Record model.Record `json:"record"`
				Error  string       `json:"error"`
			} `json:"failed"`
			Total int `json:"total"`
		} `json:"data"`
	}
	if err := h.call(ctx, "batch create", http.MethodPost, "/api/v1/records/batch", token, req, &out); err != nil {
		return syncer.BatchResult{}, err
	}

	res := syncer.BatchResult{Total: out.Data.Total}
	for _, raw := range out.Data.Successful {
		var saved model.Record
		if err := json.Unmarshal(raw, &saved); err != nil {
			return syncer.BatchResult{}, &syncer.TransportError{Op: "batch create", Err: fmt.Errorf("decode entry: %w", err)}
		}
		res.Successful = append(res.Successful, syncer.Accepted{Record: saved, Raw: raw})
	}
	for _, f := range out.Data.Failed {
		res.Failed = append(res.Failed, syncer.Rejected{Record: f.Record, Error: f.Error})
	}

	return res, nil
}

// ListRecords returns one page of the server records uploaded by ownerID.
func (h *HTTPClient) ListRecords(ctx context.Context, token, ownerID string, page, limit int) (record.Page, error) {
	q := url.Values{}
	q.Set("ownerId", ownerID)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out struct {
		Data record.Page `json:"data"`
	}
	err := h.retryRead(ctx, func() error {
		return h.call(ctx, "list records", http.MethodGet, "/api/v1/records?"+q.Encode(), token, nil, &out)
	})
	return out.Data, err
}

func (h *HTTPClient) GetRecord(ctx context.Context, token, healthID string) (record.Record, error) {
	var out struct {
		Data record.Record `json:"data"`
	}
	err := h.retryRead(ctx, func() error {
		return h.call(ctx, "get record", http.MethodGet, "/api/v1/records/"+url.PathEscape(healthID), token, nil, &out)
	})
	return out.Data, err
}

// retryRead retries read-only calls while the server cannot be reached.
// Answers with a status code are final.
func (h *HTTPClient) retryRead(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = readRetryLimit

	return backoff.Retry(func() error {
		err := op()
		var te *syncer.TransportError
		if err != nil && errors.As(err, &te) && te.Status != 0 {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func (h *HTTPClient) call(ctx context.Context, op, method, path, token string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &syncer.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return &syncer.TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return &syncer.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &syncer.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	h.log.Debug("received response", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &syncer.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(errorMessage(data, resp.StatusCode))}
	}

	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &syncer.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// errorMessage extracts a readable message from both the auth failure shape
// and huma problem details.
func errorMessage(body []byte, status int) string {
	var e struct {
		Error  string `json:"error"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		switch {
		case e.Error != "":
			return e.Error
		case e.Detail != "":
			return e.Detail
		case e.Title != "":
			return e.Title
		}
	}
	return http.StatusText(status)
}

type userView struct {
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	EmployeeID string `json:"employeeId"`
}

func (u userView) identity(token string) syncer.Identity {
	return syncer.Identity{
		Name:       u.Name,
		OwnerID:    u.OwnerID,
		EmployeeID: u.EmployeeID,
		AuthToken:  token,
	}
}
