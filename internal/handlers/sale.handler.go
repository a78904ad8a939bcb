package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/services"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/shopspring/decimal"
)

type SalesService interface {
	RecordSale(ctx context.Context, req model.SaleCreateRequest) (*model.Sale, error)
	DeleteSale(ctx context.Context, storeID, id uuid.UUID) error
	UpdateSale(ctx context.Context, storeID, id uuid.UUID, req model.SaleUpdateRequest) (*model.Sale, error)
	GetSale(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, f model.SaleFilter) ([]*model.Sale, int64, error)
	SalesStats(ctx context.Context, storeID uuid.UUID, from, to *time.Time) (*model.SalesStats, error)
}

type SaleHandler struct {
	svc SalesService
}

func NewSaleHandler(svc SalesService) *SaleHandler {
	return &SaleHandler{svc: svc}
}

func RegisterSaleRoutes(g *xhttp.Group, h *SaleHandler) {
	g.POST("/sales", h.RecordSale)
	g.GET("/sales", h.ListSales)
	g.GET("/sales/stats", h.Stats)
	g.GET("/sales/{id}", h.GetSale)
	g.PUT("/sales/{id}", h.UpdateSale)
	g.DELETE("/sales/{id}", h.DeleteSale)
}

type recordSaleRequest struct {
	ProductID     uuid.UUID           `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	CustomerName  *string             `json:"customer_name"`
	Notes         *string             `json:"notes"`
}

type updateSaleRequest struct {
	CustomerName  *string              `json:"customer_name"`
	Notes         *string              `json:"notes"`
	PaymentMethod *model.PaymentMethod `json:"payment_method"`
}

// fields that are fixed once a sale is recorded
var immutableSaleFields = []string{"product_id", "quantity", "unit_price", "total_price"}

func (h *SaleHandler) RecordSale(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	var req recordSaleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	sale, err := h.svc.RecordSale(ctx, model.SaleCreateRequest{
		ProductID:     req.ProductID,
		StoreID:       storeID,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, sale)
}

// UpdateSale only edits metadata. A body that touches a financial field is
// rejected as a whole.
func (h *SaleHandler) UpdateSale(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := readJSON(ctx, &raw); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	for _, field := range immutableSaleFields {
		if _, present := raw[field]; present {
			writeServiceError(ctx, fmt.Errorf("%w: %s cannot be changed, delete and re-record the sale", services.ErrNotEditable, field))
			return
		}
	}
	var req updateSaleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	sale, err := h.svc.UpdateSale(ctx, storeID, id, model.SaleUpdateRequest{
		CustomerName:  req.CustomerName,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, sale)
}

func (h *SaleHandler) DeleteSale(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(ctx, storeID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *SaleHandler) GetSale(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, sale)
}

func (h *SaleHandler) ListSales(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	p := paginate(ctx)
	f := model.SaleFilter{
		StoreID:       storeID,
		Search:        query(ctx, "search"),
		Category:      query(ctx, "category"),
		PaymentMethod: model.PaymentMethod(query(ctx, "payment_method")),
		SortBy:        query(ctx, "sort_by"),
		Desc:          !strings.EqualFold(query(ctx, "order"), "asc"),
		Limit:         p.Limit,
		Offset:        p.Offset(),
	}

	var err error
	if f.From, err = queryTime(ctx, "from"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	if f.To, err = queryTime(ctx, "to"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	if f.MinAmount, err = queryDecimal(ctx, "min_amount"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	if f.MaxAmount, err = queryDecimal(ctx, "max_amount"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.svc.ListSales(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newListResponse(items, total, p))
}

func (h *SaleHandler) Stats(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	from, err := queryTime(ctx, "from")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(ctx, "to")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	stats, err := h.svc.SalesStats(ctx, storeID, from, to)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stats)
}
