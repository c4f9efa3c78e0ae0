package web

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// EndpointHealth handles the 'GET /healthz' endpoint
func (service *Service) EndpointHealth(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	if err := service.Backend.Ping(ctx); err != nil {
		service.writer.WriteJSON(writer, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Backend: "unreachable"})
		return
	}
	service.writer.WriteJSON(writer, http.StatusOK, healthResponse{Status: "ok", Backend: "ok"})
}
