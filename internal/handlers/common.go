package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/services"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func newListResponse[T any](items []T, total int64, p pagination) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}

type pagination struct {
	Page  int
	Limit int
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// paginate reads page and limit. Out of range values fall back to the
// defaults rather than failing the request.
func paginate(ctx *xhttp.RequestCtx) pagination {
	p := pagination{Page: 1, Limit: defaultPageSize}
	if n, err := strconv.Atoi(query(ctx, "page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(query(ctx, "limit")); err == nil && n > 0 {
		p.Limit = min(n, maxPageSize)
	}
	return p
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	xhttp.WriteJSON(ctx, status, v)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	xhttp.WriteError(ctx, status, msg)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors are logged and answered without detail.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrDuplicateKey):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, xhttp.StatusRequestTimeout, "request timed out")
	default:
		logger.Error("[handlers] request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "internal error")
	}
}

func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, error) {
	v, _ := ctx.UserValue(name).(string)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// storeAndID reads the {storeId} and {id} path parameters, answering 400 when
// either is malformed.
func storeAndID(ctx *xhttp.RequestCtx) (uuid.UUID, uuid.UUID, bool) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	return storeID, id, true
}

func storeParam(ctx *xhttp.RequestCtx) (uuid.UUID, bool) {
	storeID, err := pathUUID(ctx, "storeId")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return uuid.Nil, false
	}
	return storeID, true
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryTime(ctx *xhttp.RequestCtx, key string) (*time.Time, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &t, nil
}

func queryDecimal(ctx *xhttp.RequestCtx, key string) (*decimal.Decimal, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &d, nil
}

func parseTime(s string) (time.Time, error) {
	// RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
