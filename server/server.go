package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ray-remotestate/menu/handlers"
	"github.com/ray-remotestate/menu/middlewares"
	"github.com/ray-remotestate/menu/storage"
	"github.com/ray-remotestate/menu/utils"
)

type Server struct {
	Router  *mux.Router
	Handler http.Handler
	server  *http.Server
}

const (
	readTimeout       = 5 * time.Minute
	readHeaderTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Minute
)

type Dependencies struct {
	Tokens         *utils.TokenManager
	Images         *storage.ImageStore
	AllowedOrigins []string
	// Registry receives the HTTP metrics and backs /metrics.
	Registry *prometheus.Registry
}

func SetupRoutes(deps Dependencies) *Server {
	metrics := middlewares.NewMetrics(deps.Registry)

	// router.Use skips 404 and 405, so their handlers are wrapped directly
	router := mux.NewRouter()
	router.NotFoundHandler = metrics.Middleware(http.HandlerFunc(handlers.NotFound))
	router.MethodNotAllowedHandler = metrics.Middleware(http.HandlerFunc(handlers.MethodNotAllowed))
	router.Use(metrics.Middleware)

	auth := handlers.NewAuthHandler(deps.Tokens)
	meals := handlers.NewMealHandler(deps.Images)

	// mutating routes go through protect, reads stay public
	protect := middlewares.AuthMiddleware(deps.Tokens)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)

	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	api.Handle("/auth/verify", protect(http.HandlerFunc(auth.Verify))).Methods(http.MethodGet)

	api.HandleFunc("/categories", handlers.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", handlers.GetCategory).Methods(http.MethodGet)
	api.Handle("/categories", protect(http.HandlerFunc(handlers.CreateCategory))).Methods(http.MethodPost)
	api.Handle("/categories/{id}", protect(http.HandlerFunc(handlers.UpdateCategory))).Methods(http.MethodPut)
	api.Handle("/categories/{id}", protect(http.HandlerFunc(handlers.DeleteCategory))).Methods(http.MethodDelete)

	api.HandleFunc("/meals", meals.ListMeals).Methods(http.MethodGet)
	api.HandleFunc("/meals/{id}", meals.GetMeal).Methods(http.MethodGet)
	api.Handle("/meals", protect(http.HandlerFunc(meals.CreateMeal))).Methods(http.MethodPost)
	api.Handle("/meals/{id}", protect(http.HandlerFunc(meals.UpdateMeal))).Methods(http.MethodPut)
	api.Handle("/meals/{id}", protect(http.HandlerFunc(meals.DeleteMeal))).Methods(http.MethodDelete)

	router.PathPrefix(storage.PublicPrefix).Handler(deps.Images.Handler()).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept"},
		ExposedHeaders:   []string{"Content-Range", "X-Content-Range", middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	return &Server{
		Router:  router,
		Handler: middlewares.Recoverer(middlewares.Logger(corsHandler(router))),
	}
}

func (svr *Server) Run(port string) error {
	svr.server = &http.Server{
		Addr:              ":" + port,
		Handler:           svr.Handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return svr.server.ListenAndServe()
}

func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svr.server.Shutdown(ctx)
}
