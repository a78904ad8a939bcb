package xhttp

import (
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/prefork"
)

type RequestHeader = fasthttp.RequestHeader
type Server = fasthttp.Server

type ServerOption struct {
	Name string

	// idle keep-alive connections are closed after this long
	IdleTimeout           time.Duration
	MaxIdleWorkerDuration time.Duration
	TCPKeepalivePeriod    time.Duration

	MaxRequestBodySize int
	ReadBufferSize     int
	WriteBufferSize    int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	Concurrency        int
	MaxConnsPerIP      int
	RecoverThreshold   int
}

// DefaultServerOption is tuned for small JSON requests.
var DefaultServerOption = ServerOption{
	IdleTimeout:           10 * time.Second,
	MaxIdleWorkerDuration: time.Minute,
	TCPKeepalivePeriod:    120 * time.Minute,
	MaxRequestBodySize:    1 << 20,
	ReadBufferSize:        4 << 10,
	WriteBufferSize:       4 << 10,
	ReadTimeout:           2500 * time.Millisecond,
	WriteTimeout:          2500 * time.Millisecond,
	Concurrency:           30_000,
	MaxConnsPerIP:         10_000,
	RecoverThreshold:      100,
}

type Engine struct {
	*Router
	*Server
	*Prefork
	option ServerOption
	middle []MiddlewareFunc
}

type Prefork = prefork.Prefork

func newServer(o ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Name:                         o.Name,
		Concurrency:                  o.Concurrency,
		ReadBufferSize:               o.ReadBufferSize,
		WriteBufferSize:              o.WriteBufferSize,
		ReadTimeout:                  o.ReadTimeout,
		WriteTimeout:                 o.WriteTimeout,
		IdleTimeout:                  o.IdleTimeout,
		MaxConnsPerIP:                o.MaxConnsPerIP,
		MaxIdleWorkerDuration:        o.MaxIdleWorkerDuration,
		TCPKeepalivePeriod:           o.TCPKeepalivePeriod,
		MaxRequestBodySize:           o.MaxRequestBodySize,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultContentType:         true,
		CloseOnShutdown:              true,
		Logger:                       logger.GetLogger(),
		ErrorHandler: func(ctx *RequestCtx, err error) {
			logger.Warn("[xhttp] connection error", "error", err)
		},
	}
}

func NewServer(o ServerOption) *Engine {
	return &Engine{
		Server: newServer(o),
		Router: CreateDefaultRouter(),
		option: o,
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

func (e *Engine) PreforkListenAndServe(addr string) error {
	e.DoRouting()
	e.Prefork = prefork.New(e.Server)
	e.Prefork.Reuseport = true
	e.Prefork.RecoverThreshold = e.option.RecoverThreshold
	e.Prefork.Logger = e.Server.Logger
	logger.Info("[xhttp] prefork server is listening", "addr", addr)
	return e.Prefork.ListenAndServe(addr)
}

// DoRouting installs the router as the server handler and wraps it with the
// registered middleware, first registered outermost.
func (e *Engine) DoRouting() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			logger.Debug("[xhttp] route", "method", method, "path", r)
		}
	}
	e.Server.Handler = e.Router.Handler
	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for _, m := range chain {
		e.Server.Handler = m(e.Server.Handler)
		logger.Debug("[xhttp] middleware registered", "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (e *Engine) Handler() RequestHandler {
	e.DoRouting()
	return e.Server.Handler
}

func (e *Engine) CloseOnSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig
		e.Shutdown()
	}()
}

func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down", "pid", os.Getpid(), "child", prefork.IsChild())
	if e.Prefork != nil {
		e.Prefork.RecoverThreshold = 0
	}
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] shutdown failed", "error", err)
	}
}
