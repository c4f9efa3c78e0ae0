package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const headerRequestID = "X-Request-ID"

// transport decorates every backend request with a request ID and logs the exchange
type transport struct {
	base http.RoundTripper
}

func (transport *transport) RoundTrip(request *http.Request) (*http.Response, error) {
	base := transport.base
	if base == nil {
		base = http.DefaultTransport
	}

	request = request.Clone(request.Context())
	if request.Header.Get(headerRequestID) == "" {
		request.Header.Set(headerRequestID, requestID(request.Context()))
	}

	start := time.Now()
	response, err := base.RoundTrip(request)
	event := log.Debug().
		Str("method", request.Method).
		Str("url", request.URL.Redacted()).
		Str("request_id", request.Header.Get(headerRequestID)).
		Dur("took", time.Since(start))
	if err != nil {
		event.Err(err).Msg("backend request failed")
		return nil, err
	}
	event.Int("status", response.StatusCode).Msg("backend request")
	return response, nil
}

// requestID propagates the ID of the inbound request if there is one
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
