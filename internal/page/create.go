package page

import (
	"context"
	"sync"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/ticket"
)

// TicketForm holds the fields of the ticket creation form
type TicketForm struct {
	Title       string
	Description string
	Priority    ticket.Priority
}

// BlankTicketForm returns an empty form preselecting the default priority
func BlankTicketForm() TicketForm {
	return TicketForm{Priority: ticket.DefaultPriority}
}

// TicketCreateView is a snapshot of the ticket creation page
type TicketCreateView struct {
	State   State
	Form    TicketForm
	Error   string
	Created *ticket.Ticket
	Route   Route
}

// Submitting reports whether the form has to be disabled
func (view TicketCreateView) Submitting() bool {
	return view.State == StateLoading
}

// TicketCreate controls the ticket creation page
type TicketCreate struct {
	creator TicketCreator

	submit flight
	mtx    sync.RWMutex
	view   TicketCreateView
}

// NewTicketCreate creates a new ticket creation page controller showing a blank form
func NewTicketCreate(creator TicketCreator) *TicketCreate {
	return &TicketCreate{
		creator: creator,
		view:    TicketCreateView{Form: BlankTicketForm()},
	}
}

// View returns the current snapshot of the page
func (create *TicketCreate) View() TicketCreateView {
	create.mtx.RLock()
	defer create.mtx.RUnlock()
	return create.view
}

// Reset restores a blank form
func (create *TicketCreate) Reset() {
	create.set(TicketCreateView{Form: BlankTicketForm()})
}

// Submit creates a ticket from the given form.
// On success the created ticket is recorded and RouteTickets is signaled; on failure the message is shown and the
// fields are kept.
func (create *TicketCreate) Submit(ctx context.Context, form TicketForm) error {
	if !create.submit.acquire() {
		return ErrBusy
	}
	defer create.submit.release()

	create.set(TicketCreateView{State: StateLoading, Form: form})

	created, err := create.creator.CreateTicket(ctx, ticket.Create{
		Title:       form.Title,
		Description: form.Description,
		Priority:    form.Priority,
	})
	if err != nil {
		if torndown(ctx, err) {
			create.set(TicketCreateView{State: StateIdle, Form: form})
			return ErrStale
		}
		create.set(TicketCreateView{State: StateError, Form: form, Error: backend.Message(err)})
		return nil
	}
	create.set(TicketCreateView{State: StateReady, Form: BlankTicketForm(), Created: created, Route: RouteTickets})
	return nil
}

func (create *TicketCreate) set(view TicketCreateView) {
	create.mtx.Lock()
	defer create.mtx.Unlock()
	create.view = view
}
