package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
)

type RestockBoard interface {
	List(ctx context.Context, storeID uuid.UUID) ([]*model.StockAlert, error)
}

// RestockHandler serves the board the alert processor maintains. It is only
// mounted when redis is configured.
type RestockHandler struct {
	board RestockBoard
}

func NewRestockHandler(board RestockBoard) *RestockHandler {
	return &RestockHandler{board: board}
}

func RegisterRestockRoutes(g *xhttp.Group, h *RestockHandler) {
	g.GET("/inventory/alerts/board", h.Board)
}

func (h *RestockHandler) Board(ctx *xhttp.RequestCtx) {
	storeID, ok := storeParam(ctx)
	if !ok {
		return
	}
	items, err := h.board.List(ctx, storeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}
