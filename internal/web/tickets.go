package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/skybi/ticketdesk/internal/page"
	"github.com/skybi/ticketdesk/internal/ticket"
)

type ticketListPage struct {
	View page.TicketListView
}

type ticketNewPage struct {
	View page.TicketCreateView

	// Notice is shown instead of the controller error if the submission could not be started at all
	Notice string
}

// EndpointTicketList handles the 'GET /' endpoint
func (service *Service) EndpointTicketList(writer http.ResponseWriter, request *http.Request) {
	tokens := sessionFromContext(request.Context())
	list := page.NewTicketList(service.Backend.WithTokens(tokens), tokens)
	if err := list.Mount(request.Context()); err != nil {
		if errors.Is(err, page.ErrStale) {
			return
		}
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	view := list.View()
	if view.Route == page.RouteLogin {
		service.endSession(writer, request, tokens)
		setFlash(writer, FlashError, "Your session has expired. Please log in again.")
		http.Redirect(writer, request, string(page.RouteLogin), http.StatusSeeOther)
		return
	}

	service.writer.WritePage(writer, request, http.StatusOK, "tickets.html", service.pageData(writer, request, "Tickets", ticketListPage{View: view}))
}

// EndpointNewTicket handles the 'GET /tickets/new' endpoint
func (service *Service) EndpointNewTicket(writer http.ResponseWriter, request *http.Request) {
	create := service.createController(request)
	create.Reset()
	service.writer.WritePage(writer, request, http.StatusOK, "ticket_new.html", service.pageData(writer, request, "New ticket", ticketNewPage{View: create.View()}))
}

// EndpointCreateTicket handles the 'POST /tickets' endpoint
func (service *Service) EndpointCreateTicket(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.writer.WriteErrorPage(writer, request, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	form := page.TicketForm{
		Title:       strings.TrimSpace(request.PostForm.Get("title")),
		Description: request.PostForm.Get("description"),
		Priority:    ticket.Priority(request.PostForm.Get("priority")),
	}
	if form.Priority == "" {
		form.Priority = ticket.DefaultPriority
	}

	create := service.createController(request)
	err := create.Submit(request.Context(), form)
	switch {
	case errors.Is(err, page.ErrBusy):
		service.writer.WritePage(writer, request, http.StatusConflict, "ticket_new.html", service.pageData(writer, request, "New ticket", ticketNewPage{
			View:   page.TicketCreateView{Form: form},
			Notice: "A ticket is already being created. Please wait a moment.",
		}))
		return
	case errors.Is(err, page.ErrStale):
		return
	case err != nil:
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	view := create.View()
	if view.Route == page.RouteTickets {
		setFlash(writer, FlashSuccess, "Ticket created successfully!")
		http.Redirect(writer, request, string(page.RouteTickets), http.StatusSeeOther)
		return
	}
	service.writer.WritePage(writer, request, http.StatusUnprocessableEntity, "ticket_new.html", service.pageData(writer, request, "New ticket", ticketNewPage{View: view}))
}

func (service *Service) createController(request *http.Request) *page.TicketCreate {
	tokens := sessionFromContext(request.Context())
	return service.pages.create(tokens.id(), func() *page.TicketCreate {
		return page.NewTicketCreate(service.Backend.WithTokens(tokens))
	})
}

// pageData builds the data common to all pages of an authenticated user
func (service *Service) pageData(writer http.ResponseWriter, request *http.Request, title string, data any) PageData {
	pageData := PageData{
		Title: title,
		Flash: popFlash(writer, request),
		Data:  data,
	}
	if tokens := sessionFromContext(request.Context()); tokens != nil {
		if obj, _ := tokens.session(); obj != nil {
			pageData.Subject = obj.Subject
		}
	}
	return pageData
}
