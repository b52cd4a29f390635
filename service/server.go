package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/celer-network/goutils/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revnet-network/revnet-sdk/common/utils"
	"github.com/revnet-network/revnet-sdk/sdk"
	"github.com/revnet-network/revnet-sdk/store"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var ErrUnknownChain = errors.New("unknown chain")

type Service struct {
	*server

	cfg        ServiceConfig
	httpServer *http.Server
	listener   net.Listener
}

type server struct {
	// chain ID => estimator
	estimators map[uint64]*sdk.BridgeFeeEstimator
	cache      *sdk.FeeCache

	registry       *prometheus.Registry
	metrics        *metrics
	requestTimeout time.Duration
}

// NewService dials every configured chain and returns a service ready to Serve
// bridge fee estimates over HTTP.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	kv, err := store.InitStore(cfg.PersistenceType, cfg.GetPersistenceOptions())
	if err != nil {
		return nil, fmt.Errorf("InitStore err: %w", err)
	}
	cache := sdk.NewFeeCache(kv)

	estimators := make(map[uint64]*sdk.BridgeFeeEstimator)
	closeAll := func() {
		for _, e := range estimators {
			e.Close()
		}
		if err := cache.Close(); err != nil {
			log.Errorf("failed to close fee cache: %s", err.Error())
		}
	}
	for _, chain := range cfg.Chains {
		estCfg, err := chain.estimatorConfig(cfg.CacheTTL)
		if err != nil {
			closeAll()
			return nil, err
		}
		est, err := sdk.Dial(ctx, chain.GetRpcUrl(), estCfg, cache)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("chain %d: %w", chain.ChainId, err)
		}
		estimators[chain.ChainId] = est
		log.Infof("bridge fee estimator ready for chain %d", chain.ChainId)
	}

	return newService(cfg, newServer(estimators, cache, cfg.GetRequestTimeout())), nil
}

func newService(cfg ServiceConfig, svr *server) *Service {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(svr.routes())

	return &Service{
		server: svr,
		cfg:    cfg,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func newServer(estimators map[uint64]*sdk.BridgeFeeEstimator, cache *sdk.FeeCache, requestTimeout time.Duration) *server {
	registry := prometheus.NewRegistry()
	return &server{
		estimators:     estimators,
		cache:          cache,
		registry:       registry,
		metrics:        newMetrics(registry),
		requestTimeout: requestTimeout,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/chains/{chainId}/suckers/{sucker}/fee", s.handleBridgeFee)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

type bridgeFeeResponse struct {
	ChainId uint64 `json:"chainId"`
	Sucker  string `json:"sucker"`
	Token   string `json:"token"`
	// Wei amounts as decimal strings, null when no fee up to the cap was accepted.
	MinimalFee  *string   `json:"minimalFee"`
	Recommended *string   `json:"recommended"`
	Converged   bool      `json:"converged"`
	Probes      int       `json:"probes"`
	Cached      bool      `json:"cached"`
	EstimatedAt time.Time `json:"estimatedAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func decimal(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func (s *server) handleBridgeFee(w http.ResponseWriter, r *http.Request) {
	chainId, err := strconv.ParseUint(r.PathValue("chainId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid chain id %q", r.PathValue("chainId")))
		return
	}
	est, ok := s.estimators[chainId]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %d", ErrUnknownChain, chainId))
		return
	}
	q, err := parseBridgeFeeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	start := time.Now()
	res, err := est.EstimateBridgeFee(ctx, q)
	s.metrics.observe(chainId, res, err, time.Since(start).Seconds())
	if err != nil {
		log.Errorf("estimate bridge fee failed, chain %d sucker %s: %s", chainId, q.Sucker.Hex(), err.Error())
		writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, bridgeFeeResponse{
		ChainId:     res.ChainId,
		Sucker:      res.Sucker.Hex(),
		Token:       res.Token.Hex(),
		MinimalFee:  decimal(res.MinimalFee),
		Recommended: decimal(res.Recommended),
		Converged:   res.Converged,
		Probes:      res.Probes,
		Cached:      res.Cached,
		EstimatedAt: res.EstimatedAt,
	})
}

func parseBridgeFeeQuery(r *http.Request) (sdk.BridgeFeeQuery, error) {
	var q sdk.BridgeFeeQuery
	sucker, err := utils.ParseAddress(r.PathValue("sucker"))
	if err != nil {
		return q, fmt.Errorf("sucker: %w", err)
	}
	q.Sucker = sucker

	params := r.URL.Query()
	token, err := utils.ParseAddress(params.Get("token"))
	if err != nil {
		return q, fmt.Errorf("token: %w", err)
	}
	q.Token = token

	// Zero address when omitted. eth_call checks the sender's balance against the
	// value, so an unfunded from fails as a transport error.
	if from := params.Get("from"); from != "" {
		q.From, err = utils.ParseAddress(from)
		if err != nil {
			return q, fmt.Errorf("from: %w", err)
		}
	}

	if amount := params.Get("amount"); amount != "" {
		q.Amount, err = utils.ParseWei(amount)
		if err != nil {
			return q, fmt.Errorf("amount: %w", err)
		}
	}
	return q, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, sdk.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("failed to write response: %s", err.Error())
	}
}

// Listen binds the configured address. Serve calls it when it has not been
// called already.
func (s *Service) Listen() (net.Addr, error) {
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	address := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.GetPort())
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to start bridge fee server: %w", err)
	}
	s.listener = lis
	return lis.Addr(), nil
}

// Serve blocks until SIGINT or SIGTERM, or until the HTTP server fails.
func (s *Service) Serve() error {
	stopCtx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()
	return s.serve(stopCtx)
}

func (s *Service) serve(stopCtx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return errors.Join(err, s.close())
	}
	errG, errGCtx := errgroup.WithContext(context.Background())
	errG.Go(s.serveHttp)

	select {
	case <-errGCtx.Done():
	case <-stopCtx.Done():
	}

	log.Infoln("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := s.httpServer.Shutdown(shutdownCtx)
	serveErr := errG.Wait()
	return errors.Join(serveErr, shutdownErr, s.close())
}

// close releases the rpc connections and the fee cache store.
func (s *server) close() error {
	for _, e := range s.estimators {
		e.Close()
	}
	return s.cache.Close()
}

func (s *Service) serveHttp() error {
	log.Infoln(">> serving bridge fee estimates at", s.listener.Addr().String())
	err := s.httpServer.Serve(s.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server crashed: %w", err)
	}
	return nil
}
