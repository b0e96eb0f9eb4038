package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/services/ordersvc"
	createorder "github.com/corray333/backend-labs/idempotent-order/internal/transport/http/create_order"
	getledger "github.com/corray333/backend-labs/idempotent-order/internal/transport/http/get_ledger"
	getorder "github.com/corray333/backend-labs/idempotent-order/internal/transport/http/get_order"
	"github.com/corray333/backend-labs/idempotent-order/internal/transport/http/health"
	"github.com/corray333/backend-labs/idempotent-order/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/idempotent-order/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "Request-ID"

type service interface {
	CreateOrder(ctx context.Context, in ordersvc.CreateOrderInput) (ordersvc.Outcome, error)
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	ListLedgerEntries(ctx context.Context, orderID string) ([]ledger.Entry, error)
	Ping(ctx context.Context) error
}

type HTTPTransport struct {
	server        *http.Server
	router        *chi.Mux
	service       service
	createOptions createorder.Options
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
		createOptions: createorder.Options{
			FailAfterCommitEnabled: viper.GetBool("debug.fail_after_commit_enabled"),
		},
	}
}

// Handler returns the root handler, for tests and embedding.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/health", h.health)
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{orderId}", h.getOrder)
		r.Get("/orders/{orderId}/ledger", h.getLedger)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service, h.createOptions)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) getLedger(w http.ResponseWriter, r *http.Request) {
	getledger.GetLedger(w, r, h.service)
}

func (h *HTTPTransport) health(w http.ResponseWriter, r *http.Request) {
	health.Health(w, r, h.service)
}

func newRouter() *chi.Mux {
	middleware.RequestIDHeader = RequestIDHeader

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	readHeaderTimeout := viper.GetDuration("server.http.read_header_timeout")
	if readHeaderTimeout == 0 {
		readHeaderTimeout = 5 * time.Second
	}

	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
