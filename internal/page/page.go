package page

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/ticket"
	"golang.org/x/oauth2"
)

// State represents the lifecycle state of a page or one of its substates
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Route is a navigation request a controller signals to its front end
type Route string

const (
	RouteNone    Route = ""
	RouteLogin   Route = "/login"
	RouteTickets Route = "/"
)

var (
	// ErrBusy is returned if an operation is started while the same substate still has a request in flight
	ErrBusy = errors.New("operation already in progress")

	// ErrStale is returned if the result of an operation was discarded because the page was torn down or
	// moved on to another ticket while the request was in flight
	ErrStale = errors.New("result discarded")

	// ErrNotMounted is returned by ticket detail actions invoked before a ticket was mounted
	ErrNotMounted = errors.New("no ticket mounted")

	// ErrNotReady is returned by ticket detail actions invoked while the mounted ticket is loading or failed to load
	ErrNotReady = errors.New("ticket not loaded")
)

// The backend operations the controllers depend on; *backend.Client implements all of them
type (
	Authenticator interface {
		Authenticate(ctx context.Context, email, password string) (*oauth2.Token, error)
	}

	TicketLister interface {
		ListTickets(ctx context.Context) ([]ticket.Ticket, error)
	}

	TicketCreator interface {
		CreateTicket(ctx context.Context, create ticket.Create) (*ticket.Ticket, error)
	}

	TicketViewer interface {
		GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error)
		ListComments(ctx context.Context, ticketID int64) ([]ticket.Comment, error)
		AddComment(ctx context.Context, ticketID int64, create ticket.CommentCreate) (*ticket.Comment, error)
		DeleteTicket(ctx context.Context, id int64) error
	}
)

var (
	_ Authenticator = (*backend.Client)(nil)
	_ TicketLister  = (*backend.Client)(nil)
	_ TicketCreator = (*backend.Client)(nil)
	_ TicketViewer  = (*backend.Client)(nil)
)

// flight admits at most one in-flight request for a substate
type flight struct {
	busy atomic.Bool
}

func (flight *flight) acquire() bool {
	return flight.busy.CompareAndSwap(false, true)
}

func (flight *flight) release() {
	flight.busy.Store(false)
}

// torndown reports whether a failed operation ended because its context was canceled by the caller
func torndown(ctx context.Context, err error) bool {
	return ctx.Err() != nil && backend.IsCanceled(err)
}
