package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
)

type CustomerService interface {
	Create(ctx context.Context, req model.CustomerCreateRequest) (*model.Customer, error)
	Update(ctx context.Context, storeID, id uuid.UUID, req model.CustomerUpdateRequest) (*model.Customer, error)
	Deactivate(ctx context.Context, storeID, id uuid.UUID) error
	Get(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error)
	Overview(ctx context.Context, storeID uuid.UUID) (*model.CustomerOverview, error)
}

type CustomerStatistics interface {
	CustomerStatistics(ctx context.Context, storeID, customerID uuid.UUID) (model.LedgerTotals, error)
}

type CustomerHandler struct {
	svc    CustomerService
	ledger CustomerStatistics
}

func NewCustomerHandler(svc CustomerService, ledger CustomerStatistics) *CustomerHandler {
	return &CustomerHandler{svc: svc, ledger: ledger}
}

func RegisterCustomerRoutes(g *xhttp.Group, h *CustomerHandler) {
	g.POST("/customers", h.CreateCustomer)
	g.GET("/customers", h.ListCustomers)
	g.GET("/customers/overview", h.Overview)
	g.GET("/customers/{id}", h.GetCustomer)
	g.PUT("/customers/{id}", h.UpdateCustomer)
	g.DELETE("/customers/{id}", h.DeactivateCustomer)
	g.GET("/customers/{id}/statistics", h.Statistics)
}

type customerRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *CustomerHandler) CreateCustomer(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	var req customerRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Create(ctx, model.CustomerCreateRequest{
		StoreID: storeID,
		Name:    deref(req.Name),
		Phone:   deref(req.Phone),
		Address: deref(req.Address),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *CustomerHandler) UpdateCustomer(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	var req customerRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Update(ctx, storeID, id, model.CustomerUpdateRequest{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func (h *CustomerHandler) DeactivateCustomer(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	if err := h.svc.Deactivate(ctx, storeID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *CustomerHandler) GetCustomer(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	c, err := h.svc.Get(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func (h *CustomerHandler) ListCustomers(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	p := paginate(ctx)
	items, total, err := h.svc.List(ctx, model.CustomerFilter{
		StoreID: storeID,
		Search:  query(ctx, "search"),
		Limit:   p.Limit,
		Offset:  p.Offset(),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newListResponse(items, total, p))
}

func (h *CustomerHandler) Overview(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	o, err := h.svc.Overview(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, o)
}

// Statistics reports ledger totals recomputed from transactions.
func (h *CustomerHandler) Statistics(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	totals, err := h.ledger.CustomerStatistics(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, totals)
}
