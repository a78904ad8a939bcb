package handlers

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/shopspring/decimal"
)

type InventoryService interface {
	CreateProduct(ctx context.Context, req model.ProductCreateRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, storeID, id uuid.UUID, req model.ProductUpdateRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, storeID, id uuid.UUID) error
	GetProduct(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error)
	UpdateStock(ctx context.Context, storeID, id uuid.UUID, kind model.StockMovement, quantity int) (*model.Product, error)
	LowStockAlerts(ctx context.Context, storeID uuid.UUID) ([]*model.Product, error)
	Categories(ctx context.Context, storeID uuid.UUID) ([]string, error)
	InventoryStats(ctx context.Context, storeID uuid.UUID) (*model.InventoryStats, error)
}

type ProductHandler struct {
	svc InventoryService
}

func NewProductHandler(svc InventoryService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func RegisterProductRoutes(g *xhttp.Group, h *ProductHandler) {
	g.POST("/products", h.CreateProduct)
	g.GET("/products", h.ListProducts)
	g.GET("/products/{id}", h.GetProduct)
	g.PUT("/products/{id}", h.UpdateProduct)
	g.DELETE("/products/{id}", h.DeleteProduct)
	g.PATCH("/products/{id}/stock", h.UpdateStock)
	g.GET("/inventory/stats", h.Stats)
	g.GET("/inventory/alerts", h.LowStock)
	g.GET("/inventory/categories", h.Categories)
}

type createProductRequest struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	SKU             *string         `json:"sku"`
	Price           decimal.Decimal `json:"price"`
	InitialQuantity int             `json:"initial_quantity"`
	RestockLevel    int             `json:"restock_level"`
}

// productView adds the derived stock status to the stored product.
type productView struct {
	*model.Product
	StockStatus string `json:"stock_status"`
}

func viewProduct(p *model.Product) productView {
	return productView{Product: p, StockStatus: p.StockStatus()}
}

func viewProducts(ps []*model.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewProduct(p))
	}
	return out
}

type updateProductRequest struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Description  *string          `json:"description"`
	SKU          *string          `json:"sku"`
	Price        *decimal.Decimal `json:"price"`
	RestockLevel *int             `json:"restock_level"`
}

type updateStockRequest struct {
	Type     model.StockMovement `json:"type"`
	Quantity int                 `json:"quantity"`
}

func (h *ProductHandler) CreateProduct(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	var req createProductRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.CreateProduct(ctx, model.ProductCreateRequest{
		StoreID:         storeID,
		Name:            req.Name,
		Category:        req.Category,
		Description:     req.Description,
		SKU:             req.SKU,
		Price:           req.Price,
		InitialQuantity: req.InitialQuantity,
		RestockLevel:    req.RestockLevel,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, viewProduct(p))
}

func (h *ProductHandler) UpdateProduct(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	var req updateProductRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.UpdateProduct(ctx, storeID, id, model.ProductUpdateRequest{
		Name:         req.Name,
		Category:     req.Category,
		Description:  req.Description,
		SKU:          req.SKU,
		Price:        req.Price,
		RestockLevel: req.RestockLevel,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, viewProduct(p))
}

func (h *ProductHandler) DeleteProduct(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(ctx, storeID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *ProductHandler) GetProduct(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(ctx, storeID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, viewProduct(p))
}

func (h *ProductHandler) ListProducts(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	p := paginate(ctx)
	f := model.ProductFilter{
		StoreID:  storeID,
		Search:   query(ctx, "search"),
		Category: query(ctx, "category"),
		Limit:    p.Limit,
		Offset:   p.Offset(),
	}
	if v := query(ctx, "low_stock"); v != "" {
		f.LowStockOnly, _ = strconv.ParseBool(v)
	}

	items, total, err := h.svc.ListProducts(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newListResponse(viewProducts(items), total, p))
}

func (h *ProductHandler) UpdateStock(ctx *xhttp.RequestCtx) {
	storeID, id, ok := storeAndID(ctx)
	if !ok {
		return
	}
	var req updateStockRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.UpdateStock(ctx, storeID, id, req.Type, req.Quantity)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, viewProduct(p))
}

func (h *ProductHandler) LowStock(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	items, err := h.svc.LowStockAlerts(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, viewProducts(items))
}

func (h *ProductHandler) Categories(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	cats, err := h.svc.Categories(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(ctx, xhttp.StatusOK, cats)
}

func (h *ProductHandler) Stats(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	s, err := h.svc.InventoryStats(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}
