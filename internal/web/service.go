package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/config"
	"github.com/skybi/ticketdesk/internal/function"
	"github.com/skybi/ticketdesk/internal/session"
)

// pageLifetime is the time page controllers of a browser session are kept after their last use
const pageLifetime = 15 * time.Minute

// Service represents the web frontend service
type Service struct {
	server *http.Server

	Config *config.Config

	// Sessions stores the browser sessions
	Sessions session.Repository

	// Backend is the unbound backend client; it gets bound to the token of a browser session per request
	Backend *backend.Client

	renderer *renderer
	writer   *writer
	pages    *registry
}

// Startup starts up the web frontend and blocks until it is shut down
func (service *Service) Startup() error {
	handler, err := service.Handler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              service.Config.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.server = server
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown shuts down the web frontend
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
	if service.pages != nil {
		service.pages.close()
		service.pages = nil
	}
}

// Handler initializes the service and builds its HTTP handler
func (service *Service) Handler() (http.Handler, error) {
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}
	service.renderer = renderer
	service.writer = &writer{
		renderer: renderer,
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the web frontend experienced an unexpected error")
		},
	}
	service.pages = newRegistry(pageLifetime)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(service.MiddlewareLogRequests)
	router.Use(service.MiddlewareRecover)
	router.Use(middleware.RedirectSlashes)
	router.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, "/", http.StatusSeeOther)
	})

	router.Get("/healthz", service.EndpointHealth)
	router.Handle("/static/*", staticHandler())

	// Authentication
	router.Get("/login", service.EndpointLoginPage)
	router.With(httprate.LimitByIP(service.Config.LoginRateLimit, time.Minute)).Post("/login", service.EndpointLogin)
	router.Post("/logout", service.EndpointLogout)

	// Tickets
	router.Get("/", function.Nest[http.HandlerFunc](service.EndpointTicketList, service.MiddlewareVerifySession))
	router.Get("/tickets/new", function.Nest[http.HandlerFunc](service.EndpointNewTicket, service.MiddlewareVerifySession))
	router.Post("/tickets", function.Nest[http.HandlerFunc](service.EndpointCreateTicket, service.MiddlewareVerifySession))
	router.Get("/tickets/{id}", function.Nest[http.HandlerFunc](service.EndpointTicketDetail, service.MiddlewareVerifySession, service.MiddlewareTicketID))
	router.Post("/tickets/{id}/comments", function.Nest[http.HandlerFunc](service.EndpointAddComment, service.MiddlewareVerifySession, service.MiddlewareTicketID))
	router.Post("/tickets/{id}/delete", function.Nest[http.HandlerFunc](service.EndpointDeleteTicket, service.MiddlewareVerifySession, service.MiddlewareTicketID))

	return router, nil
}
