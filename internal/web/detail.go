package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/skybi/ticketdesk/internal/page"
)

type ticketDetailPage struct {
	View page.TicketDetailView

	// Notices are shown instead of the controller errors if an action could not be started at all
	CommentNotice string
	DeleteNotice  string
}

// EndpointTicketDetail handles the 'GET /tickets/{id}' endpoint
func (service *Service) EndpointTicketDetail(writer http.ResponseWriter, request *http.Request) {
	detail, ok := service.mountDetail(writer, request)
	if !ok {
		return
	}
	service.writeDetail(writer, request, http.StatusOK, ticketDetailPage{View: detail.View()})
}

// EndpointAddComment handles the 'POST /tickets/{id}/comments' endpoint
func (service *Service) EndpointAddComment(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.writer.WriteErrorPage(writer, request, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	detail, ok := service.detailController(writer, request)
	if !ok {
		return
	}

	err := detail.SubmitComment(request.Context(), request.PostForm.Get("content"))
	switch {
	case errors.Is(err, page.ErrBusy):
		service.writeDetail(writer, request, http.StatusConflict, ticketDetailPage{
			View:          detail.View(),
			CommentNotice: "A comment is already being submitted. Please wait a moment.",
		})
		return
	case errors.Is(err, page.ErrStale):
		return
	case errors.Is(err, page.ErrNotReady), errors.Is(err, page.ErrNotMounted):
		// The controller was remounted by another request in the meantime
		http.Redirect(writer, request, ticketPath(ticketIDFromContext(request.Context())), http.StatusSeeOther)
		return
	case err != nil:
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	view := detail.View()
	if view.CommentError != "" {
		service.writeDetail(writer, request, http.StatusUnprocessableEntity, ticketDetailPage{View: view})
		return
	}
	http.Redirect(writer, request, ticketPath(view.ID), http.StatusSeeOther)
}

// EndpointDeleteTicket handles the 'POST /tickets/{id}/delete' endpoint
func (service *Service) EndpointDeleteTicket(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.writer.WriteErrorPage(writer, request, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	detail, ok := service.detailController(writer, request)
	if !ok {
		return
	}

	if request.PostForm.Get("confirm") != "yes" {
		service.writeDetail(writer, request, http.StatusUnprocessableEntity, ticketDetailPage{
			View:         detail.View(),
			DeleteNotice: "Please confirm that you want to delete this ticket.",
		})
		return
	}

	err := detail.Delete(request.Context())
	switch {
	case errors.Is(err, page.ErrBusy):
		service.writeDetail(writer, request, http.StatusConflict, ticketDetailPage{
			View:         detail.View(),
			DeleteNotice: "The ticket is already being deleted. Please wait a moment.",
		})
		return
	case errors.Is(err, page.ErrStale):
		return
	case errors.Is(err, page.ErrNotReady), errors.Is(err, page.ErrNotMounted):
		// The controller was remounted by another request in the meantime
		http.Redirect(writer, request, ticketPath(ticketIDFromContext(request.Context())), http.StatusSeeOther)
		return
	case err != nil:
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	view := detail.View()
	if view.Route != page.RouteTickets {
		service.writeDetail(writer, request, http.StatusUnprocessableEntity, ticketDetailPage{View: view})
		return
	}
	tokens := sessionFromContext(request.Context())
	service.pages.dropDetail(tokens.id(), view.ID)
	setFlash(writer, FlashSuccess, "Ticket deleted.")
	http.Redirect(writer, request, string(page.RouteTickets), http.StatusSeeOther)
}

// mountDetail mounts a fresh detail controller for the requested ticket and registers it for follow-up actions
func (service *Service) mountDetail(writer http.ResponseWriter, request *http.Request) (*page.TicketDetail, bool) {
	tokens := sessionFromContext(request.Context())
	id := ticketIDFromContext(request.Context())

	detail := page.NewTicketDetail(service.Backend.WithTokens(tokens))
	if err := detail.Mount(request.Context(), id); err != nil {
		if !errors.Is(err, page.ErrStale) {
			service.writer.WriteInternalError(writer, request, err)
		}
		return nil, false
	}
	service.pages.putDetail(tokens.id(), id, detail)
	return detail, true
}

// detailController returns the registered detail controller of the requested ticket, mounting one if needed.
// If the ticket cannot be loaded, the load error is rendered and false is returned.
func (service *Service) detailController(writer http.ResponseWriter, request *http.Request) (*page.TicketDetail, bool) {
	tokens := sessionFromContext(request.Context())
	id := ticketIDFromContext(request.Context())
	if detail, ok := service.pages.detail(tokens.id(), id); ok && detail.View().State == page.StateReady {
		return detail, true
	}
	detail, ok := service.mountDetail(writer, request)
	if !ok {
		return nil, false
	}
	if view := detail.View(); view.State != page.StateReady {
		service.writeDetail(writer, request, http.StatusUnprocessableEntity, ticketDetailPage{View: view})
		return nil, false
	}
	return detail, true
}

func (service *Service) writeDetail(writer http.ResponseWriter, request *http.Request, code int, data ticketDetailPage) {
	title := "Ticket"
	if data.View.Ticket != nil {
		title = data.View.Ticket.Title
	}
	service.writer.WritePage(writer, request, code, "ticket_detail.html", service.pageData(writer, request, title, data))
}

func ticketPath(id int64) string {
	return fmt.Sprintf("/tickets/%d", id)
}
