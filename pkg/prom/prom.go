package prom

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger    = "ledger"
	SystemInventory = "inventory"
	SystemSales     = "sales"
	SystemAlerts    = "alerts"
	SystemHTTP      = "http"
)

const (
	MetricLedgerTransactions      = "transactions_total"
	MetricLedgerReadRepairs       = "read_repairs_total"
	MetricStockMovements          = "stock_movements_total"
	MetricInsufficientStock       = "insufficient_stock_total"
	MetricSalesRecorded           = "recorded_total"
	MetricSalesRevenue            = "revenue_total"
	MetricAlertsPublished         = "published_total"
	MetricAlertsProcessed         = "processed_total"
	MetricHTTPRequestDuration     = "request_duration_seconds"
	MetricOperationAborts         = "aborts_total"
	MetricAlertProcessingDuration = "processing_duration_seconds"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogram    = "histogram"
	TypeHistogramVec = "histogramVec"
	TypeGaugeVec     = "gaugeVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers every metric the service reports. Until it is called all
// helpers are no-ops.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	// Ledger
	hasError(createCounterVec(SystemLedger, MetricLedgerTransactions, []string{"op", "type"}))
	hasError(createCounter(SystemLedger, MetricLedgerReadRepairs))
	hasError(createCounterVec(SystemLedger, MetricOperationAborts, []string{"op"}))

	// Inventory
	hasError(createCounterVec(SystemInventory, MetricStockMovements, []string{"kind"}))
	hasError(createCounter(SystemInventory, MetricInsufficientStock))

	// Sales
	hasError(createCounterVec(SystemSales, MetricSalesRecorded, []string{"payment_method"}))
	hasError(createCounter(SystemSales, MetricSalesRevenue))

	// Alerts
	hasError(createCounterVec(SystemAlerts, MetricAlertsPublished, []string{"result"}))
	hasError(createCounterVec(SystemAlerts, MetricAlertsProcessed, []string{"result"}))
	hasError(createHistogram(SystemAlerts, MetricAlertProcessingDuration))

	// HTTP
	hasError(createHistogramVec(SystemHTTP, MetricHTTPRequestDuration, []string{"method", "route", "status"}))

	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labelsValues ...string) error {
	switch metricType {
	case TypeCounter:
		return createCounter(metricSubsystem, metricName)
	case TypeCounterVec:
		return createCounterVec(metricSubsystem, metricName, labelsValues)
	case TypeHistogram:
		return createHistogram(metricSubsystem, metricName)
	case TypeHistogramVec:
		return createHistogramVec(metricSubsystem, metricName, labelsValues)
	case TypeGaugeVec:
		return createGaugeVec(metricSubsystem, metricName, labelsValues)
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

func ListenAndServer(addr string, path string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(path, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "path", path)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounters[subsystem+name] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionCounters[subsystem+name])
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogram(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogram[subsystem+name] = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	})
	return prometheus.Register(MetricCollectionHistogram[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionGaugeVec[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionGaugeVec[subsystem+name])
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogram(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogram[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncLedgerTransaction(op, typ string) {
	IncCounterVec(SystemLedger, MetricLedgerTransactions, op, typ)
}

func IncReadRepair() {
	IncCounter(SystemLedger, MetricLedgerReadRepairs)
}

func IncOperationAbort(op string) {
	IncCounterVec(SystemLedger, MetricOperationAborts, op)
}

func IncStockMovement(kind string) {
	IncCounterVec(SystemInventory, MetricStockMovements, kind)
}

func IncInsufficientStock() {
	IncCounter(SystemInventory, MetricInsufficientStock)
}

func IncSaleRecorded(paymentMethod string, revenue float64) {
	IncCounterVec(SystemSales, MetricSalesRecorded, paymentMethod)
	AddCounter(SystemSales, MetricSalesRevenue, revenue)
}

func IncAlertPublished(result string) {
	IncCounterVec(SystemAlerts, MetricAlertsPublished, result)
}

func IncAlertProcessed(result string) {
	IncCounterVec(SystemAlerts, MetricAlertsProcessed, result)
}

func ObserveAlertProcessing(d time.Duration) {
	AddHistogram(SystemAlerts, MetricAlertProcessingDuration, d.Seconds())
}

// RequestMetricsMiddleware records request latency by matched route so path
// parameters don't explode label cardinality.
func RequestMetricsMiddleware(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		AddHistogramVec(SystemHTTP, MetricHTTPRequestDuration, time.Since(start).Seconds(),
			string(ctx.Method()), xhttp.MatchedRoute(ctx), strconv.Itoa(ctx.Response.StatusCode()))
	}
}
