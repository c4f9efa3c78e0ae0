package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/skybi/ticketdesk/internal/page"
)

type loginPage struct {
	View page.LoginView
}

// EndpointLoginPage handles the 'GET /login' endpoint
func (service *Service) EndpointLoginPage(writer http.ResponseWriter, request *http.Request) {
	tokens, err := service.lookupSession(request)
	if err != nil {
		service.writer.WriteInternalError(writer, request, err)
		return
	}
	if tokens != nil {
		http.Redirect(writer, request, string(page.RouteTickets), http.StatusSeeOther)
		return
	}

	service.writer.WritePage(writer, request, http.StatusOK, "login.html", PageData{
		Title: "Login",
		Flash: popFlash(writer, request),
		Data:  loginPage{},
	})
}

// EndpointLogin handles the 'POST /login' endpoint
func (service *Service) EndpointLogin(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.writer.WriteErrorPage(writer, request, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	email := strings.TrimSpace(request.PostForm.Get("email"))
	password := request.PostForm.Get("password")

	// A new login replaces the session the browser may still hold
	previous, err := service.lookupSession(request)
	if err != nil {
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	tokens := newSessionTokens(service.Sessions, service.Config.SessionLifetime)
	login := page.NewLogin(service.Backend.WithTokens(tokens), tokens)
	if err := login.Submit(request.Context(), email, password); err != nil {
		if errors.Is(err, page.ErrStale) {
			return
		}
		service.writer.WriteInternalError(writer, request, err)
		return
	}

	view := login.View()
	if view.Route != page.RouteTickets {
		service.writer.WritePage(writer, request, http.StatusUnauthorized, "login.html", PageData{
			Title: "Login",
			Data:  loginPage{View: view},
		})
		return
	}

	service.terminate(request.Context(), previous)
	created, rawID := tokens.session()
	service.setSessionCookie(writer, rawID, created.Expires)
	http.Redirect(writer, request, string(page.RouteTickets), http.StatusSeeOther)
}

// EndpointLogout handles the 'POST /logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	tokens, err := service.lookupSession(request)
	if err != nil {
		service.writer.WriteInternalError(writer, request, err)
		return
	}
	if tokens != nil {
		list := page.NewTicketList(service.Backend.WithTokens(tokens), tokens)
		if err := list.Logout(request.Context()); err != nil {
			service.writer.WriteInternalError(writer, request, err)
			return
		}
	}
	service.endSession(writer, request, tokens)
	setFlash(writer, FlashInfo, "You have been logged out.")
	http.Redirect(writer, request, string(page.RouteLogin), http.StatusSeeOther)
}
