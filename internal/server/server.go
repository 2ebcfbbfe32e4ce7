package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the listener.
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Server serves the REST routes.
type Server struct {
	relay    Relay
	verifier Verifier
	logger   *zap.SugaredLogger
	opts     Options
	handler  http.Handler
}

// New builds the router. Metrics are registered with reg and exposed from
// it on /metrics.
func New(r Relay, v Verifier, logger *zap.SugaredLogger, reg *prometheus.Registry, opts Options) (*Server, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	s := &Server{relay: r, verifier: v, logger: logger, opts: opts}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequest, m.handle)

	router.GET("/healthz", s.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.POST("/users", s.register)
	router.POST("/users/login", s.login)

	authorized := router.Group("/", s.authenticate)
	authorized.GET("/channels", s.channels)
	authorized.GET("/channels/:channel/info", s.chainInfo)
	authorized.GET("/channels/:channel/blocks/:number", s.block)
	authorized.GET("/channels/:channel/transactions/:txid", s.transaction)
	authorized.POST("/channels/:channel/chaincodes/:chaincode", s.invoke)
	authorized.GET("/channels/:channel/chaincodes/:chaincode", s.query)
	authorized.GET("/qscc/channels/:channel/chaincodes/:chaincode", s.querySystem)

	s.handler = handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(router)

	return s, nil
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.handler}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

func (s *Server) logRequest(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	s.logger.Debugw("request",
		"method", ctx.Request.Method,
		"path", ctx.Request.URL.Path,
		"status", ctx.Writer.Status(),
		"latency", time.Since(start),
		"client", ctx.ClientIP(),
	)
}
