package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/skybi/ticketdesk/internal/token"
)

// TicketListView is a snapshot of the ticket list page
type TicketListView struct {
	State   State
	Tickets []ticket.Ticket
	Error   string
	Route   Route

	// LoggedOut is set if the route to the login page results from a rejected session rather than an explicit
	// logout
	LoggedOut bool
}

// TicketList controls the ticket list page
type TicketList struct {
	lister TicketLister
	tokens token.Store

	load flight
	mtx  sync.RWMutex
	view TicketListView
}

// NewTicketList creates a new ticket list page controller
func NewTicketList(lister TicketLister, tokens token.Store) *TicketList {
	return &TicketList{
		lister: lister,
		tokens: tokens,
	}
}

// View returns the current snapshot of the page
func (list *TicketList) View() TicketListView {
	list.mtx.RLock()
	defer list.mtx.RUnlock()
	view := list.view
	view.Tickets = append([]ticket.Ticket(nil), list.view.Tickets...)
	return view
}

// Mount loads the tickets visible to the authenticated user.
// A rejected session clears the token and signals RouteLogin.
func (list *TicketList) Mount(ctx context.Context) error {
	if !list.load.acquire() {
		return ErrBusy
	}
	defer list.load.release()

	list.set(TicketListView{State: StateLoading})

	tickets, err := list.lister.ListTickets(ctx)
	switch {
	case err == nil:
		list.set(TicketListView{State: StateReady, Tickets: tickets})
		return nil
	case torndown(ctx, err):
		list.set(TicketListView{State: StateIdle})
		return ErrStale
	case errors.Is(err, backend.ErrUnauthorized):
		list.set(TicketListView{State: StateError, Error: backend.Message(err), Route: RouteLogin, LoggedOut: true})
		if err := list.tokens.Clear(ctx); err != nil {
			return fmt.Errorf("could not clear the rejected session token: %w", err)
		}
		return nil
	default:
		list.set(TicketListView{State: StateError, Error: backend.Message(err)})
		return nil
	}
}

// Logout clears the session token and signals RouteLogin
func (list *TicketList) Logout(ctx context.Context) error {
	list.set(TicketListView{State: StateIdle, Route: RouteLogin})
	if err := list.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("could not clear the session token: %w", err)
	}
	return nil
}

func (list *TicketList) set(view TicketListView) {
	list.mtx.Lock()
	defer list.mtx.Unlock()
	list.view = view
}
