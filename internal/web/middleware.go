package web

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// MiddlewareLogRequests logs every handled request
func (service *Service) MiddlewareLogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		next.ServeHTTP(wrapped, request)
		log.Info().
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Int("status", wrapped.Status()).
			Int("bytes", wrapped.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(request.Context())).
			Msg("handled request")
	})
}

// MiddlewareRecover turns panics into internal errors
func (service *Service) MiddlewareRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("recovered from panic")
				service.writer.WriteInternalError(writer, request, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(writer, request)
	})
}

// MiddlewareVerifySession requires a valid browser session and redirects to the login page otherwise
func (service *Service) MiddlewareVerifySession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		tokens, err := service.lookupSession(request)
		if err != nil {
			service.writer.WriteInternalError(writer, request, err)
			return
		}
		if tokens == nil {
			if _, err := request.Cookie(cookieNameSession); err == nil {
				service.clearSessionCookie(writer)
			}
			http.Redirect(writer, request, "/login", http.StatusSeeOther)
			return
		}
		next(writer, request.WithContext(context.WithValue(request.Context(), contextKeySession, tokens)))
	}
}

// MiddlewareTicketID parses the ticket ID path parameter; invalid IDs yield the not found page
func (service *Service) MiddlewareTicketID(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
		if err != nil || id <= 0 {
			service.writer.WriteErrorPage(writer, request, http.StatusNotFound, "Ticket not found.")
			return
		}
		next(writer, request.WithContext(context.WithValue(request.Context(), contextKeyTicketID, id)))
	}
}

func ticketIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKeyTicketID).(int64)
	return id
}
