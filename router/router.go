package router

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/endpoints"
	"github.com/oxxion/rtd-server/endpoints/rtd"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookexecution"
	"github.com/oxxion/rtd-server/metrics"
	prometheusmetrics "github.com/oxxion/rtd-server/metrics/prometheus"
	"github.com/oxxion/rtd-server/modules"
	"github.com/oxxion/rtd-server/modules/moduledeps"
	"github.com/oxxion/rtd-server/router/aspects"
	"github.com/oxxion/rtd-server/util/uuidutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

// NoCache Middleware to prevent the caching of responses.
type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

// SupportCORS lets any page call the RTD endpoints from the browser.
// The endpoints carry no cookie and are not used for authorization.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}

type Router struct {
	*httprouter.Router
	MetricsEngine metrics.MetricsEngine
	// PrometheusRegistry is nil when no prometheus port is configured.
	PrometheusRegistry *prometheus.Registry
	// ModulesStages lists the stages each enabled module provides hooks for.
	ModulesStages map[string][]string
	Shutdown      func()
}

func getTransport(cfg config.HTTPClient) *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(cfg.IdleConnTimeout) * time.Second,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
	}

	if cfg.DialTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   time.Duration(cfg.DialTimeout) * time.Millisecond,
			KeepAlive: time.Duration(cfg.DialKeepAlive) * time.Second,
		}).DialContext
	}

	if cfg.TLSHandshakeTimeout > 0 {
		transport.TLSHandshakeTimeout = time.Duration(cfg.TLSHandshakeTimeout) * time.Second
	}

	if cfg.ResponseHeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = time.Duration(cfg.ResponseHeaderTimeout) * time.Second
	}

	return transport
}

func newMetricsEngine(cfg *config.Configuration) (metrics.MetricsEngine, *prometheus.Registry) {
	if cfg.Metrics.Prometheus.Port == 0 {
		return &metrics.NilMetricsEngine{}, nil
	}
	prometheusEngine := prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
	return prometheusEngine, prometheusEngine.Registry
}

// New builds the modules and the RTD endpoints serving them.
func New(cfg *config.Configuration, version, revision string) (r *Router, err error) {
	r = &Router{
		Router:   httprouter.New(),
		Shutdown: func() {},
	}

	r.MetricsEngine, r.PrometheusRegistry = newMetricsEngine(cfg)

	moduleDeps := moduledeps.ModuleDeps{
		HTTPClient:         &http.Client{Transport: getTransport(cfg.Client)},
		PrometheusGatherer: r.PrometheusRegistry,
	}
	repo, modulesStages, shutdownModules, err := modules.NewBuilder().Build(cfg.Hooks.Modules, moduleDeps)
	if err != nil {
		return nil, fmt.Errorf("failed to build hook modules: %v", err)
	}
	r.ModulesStages = modulesStages
	r.Shutdown = shutdownModules.Shutdown

	planBuilder := hooks.NewExecutionPlanBuilder(cfg.Hooks, repo)
	uuidGenerator := uuidutil.UUIDRandomGenerator{}

	requestEndpoint, err := rtd.NewRequestEndpoint(uuidGenerator, cfg, r.MetricsEngine, planBuilder)
	if err != nil {
		glog.Fatalf("Failed to create the request endpoint handler. %v", err)
	}

	auctionEndEndpoint, err := rtd.NewAuctionEndEndpoint(uuidGenerator, cfg, r.MetricsEngine, planBuilder)
	if err != nil {
		glog.Fatalf("Failed to create the auction end endpoint handler. %v", err)
	}

	if cfg.RequestTimeoutHeaders != (config.RequestTimeoutHeaders{}) {
		requestEndpoint = aspects.QueuedRequestTimeout(requestEndpoint, cfg.RequestTimeoutHeaders, r.MetricsEngine, metrics.ReqTypeRTDRequest)
		auctionEndEndpoint = aspects.QueuedRequestTimeout(auctionEndEndpoint, cfg.RequestTimeoutHeaders, r.MetricsEngine, metrics.ReqTypeRTDAuctionEnd)
	}

	r.POST(hookexecution.EndpointRTDRequest, requestEndpoint)
	r.POST(hookexecution.EndpointRTDAuctionEnd, auctionEndEndpoint)
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.HandlerFunc(http.MethodGet, "/version", endpoints.NewVersionEndpoint(version, revision, modulesStages))

	return r, nil
}

// Admin returns the handler of the admin port: profiling and the build version.
func Admin(version, revision string, modulesStages map[string][]string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/version", endpoints.NewVersionEndpoint(version, revision, modulesStages))
	return mux
}
