package xhttp

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

const (
	StatusOK                  = fasthttp.StatusOK
	StatusCreated             = fasthttp.StatusCreated
	StatusNoContent           = fasthttp.StatusNoContent
	StatusBadRequest          = fasthttp.StatusBadRequest
	StatusNotFound            = fasthttp.StatusNotFound
	StatusConflict            = fasthttp.StatusConflict
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusInternalServerError = fasthttp.StatusInternalServerError
	StatusServiceUnavailable  = fasthttp.StatusServiceUnavailable
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}

// ErrorBody is the envelope every failed request is answered with.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(ctx *RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if v == nil {
		return
	}
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
	}
}

func WriteError(ctx *RequestCtx, status int, msg string) {
	WriteJSON(ctx, status, ErrorBody{Error: StatusText(status), Message: msg})
}
