package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router that answers unknown paths and
// methods with a JSON 404.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = NotFoundHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	WriteError(ctx, StatusNotFound, "route not found")
}

// MatchedRoute returns the route pattern that served the request, or the raw
// path when nothing matched.
func MatchedRoute(ctx *RequestCtx) string {
	if v, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok {
		return v
	}
	return string(ctx.Path())
}
