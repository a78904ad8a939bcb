package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.CreditTransaction, error)
	AmendTransaction(ctx context.Context, req model.TransactionAmendRequest) (*model.CreditTransaction, error)
	CancelTransaction(ctx context.Context, storeID, id uuid.UUID) error
	CompleteTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error)
	GetTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.CreditTransaction, int64, error)
	OverdueTransactions(ctx context.Context, storeID uuid.UUID) ([]*model.CreditTransaction, error)
	StoreSummary(ctx context.Context, storeID uuid.UUID) (*model.StoreSummary, error)
}

type TransactionHandler struct {
	svc LedgerService
}

func NewTransactionHandler(svc LedgerService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

func RegisterTransactionRoutes(g *xhttp.Group, h *TransactionHandler) {
	g.POST("/transactions", h.RecordTransaction)
	g.GET("/transactions", h.ListTransactions)
	g.GET("/transactions/summary", h.Summary)
	g.GET("/transactions/overdue", h.Overdue)
	g.GET("/transactions/{id}", h.GetTransaction)
	g.PUT("/transactions/{id}", h.AmendTransaction)
	g.DELETE("/transactions/{id}", h.CancelTransaction)
	g.POST("/transactions/{id}/complete", h.CompleteTransaction)
}

type recordTransactionRequest struct {
	CustomerID  uuid.UUID             `json:"customer_id"`
	Type        model.TransactionType `json:"type"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description"`
	DueDate     *string               `json:"due_date"`
}

type amendTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	DueDate     *string         `json:"due_date"`
}

func (h *TransactionHandler) RecordTransaction(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	var req recordTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	due, err := optionalTime(req.DueDate)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid due_date")
		return
	}
	txn, err := h.svc.RecordTransaction(ctx, model.TransactionCreateRequest{
		CustomerID:  req.CustomerID,
		StoreID:     storeID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, txn)
}

func (h *TransactionHandler) AmendTransaction(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	var req amendTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	due, err := optionalTime(req.DueDate)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid due_date")
		return
	}
	txn, err := h.svc.AmendTransaction(ctx, model.TransactionAmendRequest{
		ID:          id,
		StoreID:     storeID,
		Amount:      req.Amount,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) CancelTransaction(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	if err := h.svc.CancelTransaction(ctx, storeID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *TransactionHandler) CompleteTransaction(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	txn, err := h.svc.CompleteTransaction(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	txn, err := h.svc.GetTransaction(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	p := paginate(ctx)
	f := model.TransactionFilter{StoreID: storeID, Limit: p.Limit, Offset: p.Offset()}

	if v := query(ctx, "customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid customer_id")
			return
		}
		f.CustomerID = &id
	}
	if v := query(ctx, "type"); v != "" && v != "all" {
		t := model.TransactionType(v)
		if !t.Valid() {
			writeError(ctx, xhttp.StatusBadRequest, "invalid type")
			return
		}
		f.Type = &t
	}

	items, total, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newListResponse(items, total, p))
}

func (h *TransactionHandler) Overdue(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	items, err := h.svc.OverdueTransactions(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.CreditTransaction{}
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *TransactionHandler) Summary(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	s, err := h.svc.StoreSummary(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}
