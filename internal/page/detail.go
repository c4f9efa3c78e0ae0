package page

import (
	"context"
	"strings"
	"sync"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/ticket"
	"golang.org/x/sync/errgroup"
)

// errEmptyComment is shown if a comment consists of whitespace only
const errEmptyComment = "Comment cannot be empty."

// TicketDetailView is a snapshot of the ticket detail page.
// The load, comment and delete substates are tracked separately and each carries its own error.
type TicketDetailView struct {
	ID       int64
	State    State
	Ticket   *ticket.Ticket
	Comments []ticket.Comment
	Error    string

	Draft        string
	Commenting   bool
	CommentError string

	Deleting    bool
	DeleteError string

	Route Route
}

// TicketDetail controls the ticket detail page including its comments
type TicketDetail struct {
	viewer TicketViewer

	comment flight
	remove  flight

	mtx        sync.RWMutex
	generation uint64
	view       TicketDetailView
}

// NewTicketDetail creates a new, unmounted ticket detail page controller
func NewTicketDetail(viewer TicketViewer) *TicketDetail {
	return &TicketDetail{viewer: viewer}
}

// View returns the current snapshot of the page
func (detail *TicketDetail) View() TicketDetailView {
	detail.mtx.RLock()
	defer detail.mtx.RUnlock()
	view := detail.view
	view.Comments = append([]ticket.Comment(nil), detail.view.Comments...)
	return view
}

// Mount loads the ticket with the given ID together with its comments.
// Both requests are issued concurrently and both have to succeed for the page to become ready.
// If both fail, the error of the ticket request is shown.
// Mounting another ID supersedes a load still in flight; mounting the ID currently loading returns ErrBusy.
func (detail *TicketDetail) Mount(ctx context.Context, id int64) error {
	detail.mtx.Lock()
	if detail.view.State == StateLoading && detail.view.ID == id {
		detail.mtx.Unlock()
		return ErrBusy
	}
	detail.generation++
	generation := detail.generation
	detail.view = TicketDetailView{ID: id, State: StateLoading}
	detail.mtx.Unlock()

	var (
		obj         *ticket.Ticket
		comments    []ticket.Comment
		ticketErr   error
		commentsErr error
		group       errgroup.Group
	)
	group.Go(func() error {
		obj, ticketErr = detail.viewer.GetTicket(ctx, id)
		return ticketErr
	})
	group.Go(func() error {
		comments, commentsErr = detail.viewer.ListComments(ctx, id)
		return commentsErr
	})
	_ = group.Wait()

	// The ticket error takes precedence regardless of which request failed first
	err := ticketErr
	if err == nil {
		err = commentsErr
	}

	detail.mtx.Lock()
	defer detail.mtx.Unlock()
	if generation != detail.generation {
		return ErrStale
	}
	switch {
	case err == nil:
		detail.view.State = StateReady
		detail.view.Ticket = obj
		detail.view.Comments = comments
		return nil
	case torndown(ctx, err):
		detail.view.State = StateIdle
		return ErrStale
	default:
		detail.view.State = StateError
		detail.view.Error = backend.Message(err)
		return nil
	}
}

// Unmount tears the page down; results of requests still in flight are discarded
func (detail *TicketDetail) Unmount() {
	detail.mtx.Lock()
	defer detail.mtx.Unlock()
	detail.generation++
	detail.view = TicketDetailView{}
}

// SubmitComment adds a comment to the mounted ticket and prepends it to the shown comments.
// Blank content is rejected locally. On failure the draft is kept.
// Comments can only be added once the ticket is loaded; ErrNotReady is returned otherwise.
func (detail *TicketDetail) SubmitComment(ctx context.Context, content string) error {
	if !detail.comment.acquire() {
		return ErrBusy
	}
	defer detail.comment.release()

	detail.mtx.Lock()
	if detail.view.ID == 0 {
		detail.mtx.Unlock()
		return ErrNotMounted
	}
	if detail.view.State != StateReady {
		detail.mtx.Unlock()
		return ErrNotReady
	}
	detail.view.Draft = content
	if strings.TrimSpace(content) == "" {
		detail.view.CommentError = errEmptyComment
		detail.mtx.Unlock()
		return nil
	}
	generation, id := detail.generation, detail.view.ID
	detail.view.Commenting = true
	detail.view.CommentError = ""
	detail.mtx.Unlock()

	created, err := detail.viewer.AddComment(ctx, id, ticket.CommentCreate{Content: content})

	detail.mtx.Lock()
	defer detail.mtx.Unlock()
	if generation != detail.generation {
		return ErrStale
	}
	detail.view.Commenting = false
	if err != nil {
		if torndown(ctx, err) {
			return ErrStale
		}
		detail.view.CommentError = backend.Message(err)
		return nil
	}
	detail.view.Comments = append([]ticket.Comment{*created}, detail.view.Comments...)
	detail.view.Draft = ""
	return nil
}

// Delete deletes the mounted ticket; the caller is responsible for asking the user for confirmation.
// On success RouteTickets is signaled; on failure a delete-specific error is shown and the page stays.
// Like SubmitComment it requires the ticket to be loaded.
func (detail *TicketDetail) Delete(ctx context.Context) error {
	if !detail.remove.acquire() {
		return ErrBusy
	}
	defer detail.remove.release()

	detail.mtx.Lock()
	if detail.view.ID == 0 {
		detail.mtx.Unlock()
		return ErrNotMounted
	}
	if detail.view.State != StateReady {
		detail.mtx.Unlock()
		return ErrNotReady
	}
	generation, id := detail.generation, detail.view.ID
	detail.view.Deleting = true
	detail.view.DeleteError = ""
	detail.mtx.Unlock()

	err := detail.viewer.DeleteTicket(ctx, id)

	detail.mtx.Lock()
	defer detail.mtx.Unlock()
	if generation != detail.generation {
		return ErrStale
	}
	detail.view.Deleting = false
	if err != nil {
		if torndown(ctx, err) {
			return ErrStale
		}
		detail.view.DeleteError = backend.Message(err)
		return nil
	}
	detail.view.Route = RouteTickets
	return nil
}
