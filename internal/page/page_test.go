package page

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/backend/backendtest"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/skybi/ticketdesk/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, server *backendtest.Server, store token.Store) *backend.Client {
	t.Helper()
	client, err := backend.New(server.URL)
	require.NoError(t, err)
	return client.WithTokens(store)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestLogin(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()

	t.Run("valid credentials", func(t *testing.T) {
		store := token.NewMemory("")
		login := NewLogin(newClient(t, server, store), store)
		require.NoError(t, login.Submit(context.Background(), backendtest.Employee.Email, backendtest.Employee.Password))

		view := login.View()
		assert.Equal(t, StateReady, view.State)
		assert.Equal(t, RouteTickets, view.Route)
		raw, _ := store.Get(context.Background())
		assert.NotEmpty(t, raw)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		store := token.NewMemory("")
		login := NewLogin(newClient(t, server, store), store)
		require.NoError(t, login.Submit(context.Background(), backendtest.Employee.Email, "wrong"))

		view := login.View()
		assert.Equal(t, StateError, view.State)
		assert.Equal(t, "Incorrect email or password", view.Error)
		assert.Equal(t, backendtest.Employee.Email, view.Email)
		assert.Equal(t, RouteNone, view.Route)
		assert.False(t, view.Submitting())
		raw, _ := store.Get(context.Background())
		assert.Empty(t, raw)
	})
}

func TestTicketList(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	server.Seed(backendtest.Employee, "Printer down", "", ticket.PriorityHigh)

	t.Run("ready", func(t *testing.T) {
		store := token.NewMemory(server.Token(backendtest.Employee))
		list := NewTicketList(newClient(t, server, store), store)
		require.NoError(t, list.Mount(context.Background()))

		view := list.View()
		assert.Equal(t, StateReady, view.State)
		require.Len(t, view.Tickets, 1)
		assert.Equal(t, "Printer down", view.Tickets[0].Title)
	})

	t.Run("unauthorized forces logout", func(t *testing.T) {
		store := token.NewMemory("expired")
		list := NewTicketList(newClient(t, server, store), store)
		require.NoError(t, list.Mount(context.Background()))

		view := list.View()
		assert.Equal(t, RouteLogin, view.Route)
		assert.True(t, view.LoggedOut)
		assert.Nil(t, view.Tickets)
		raw, _ := store.Get(context.Background())
		assert.Empty(t, raw)
	})

	t.Run("without token", func(t *testing.T) {
		store := token.NewMemory("")
		list := NewTicketList(newClient(t, server, store), store)
		require.NoError(t, list.Mount(context.Background()))
		assert.Equal(t, RouteLogin, list.View().Route)
	})

	t.Run("logout", func(t *testing.T) {
		store := token.NewMemory(server.Token(backendtest.Employee))
		list := NewTicketList(newClient(t, server, store), store)
		require.NoError(t, list.Logout(context.Background()))

		assert.Equal(t, RouteLogin, list.View().Route)
		assert.False(t, list.View().LoggedOut)
		raw, _ := store.Get(context.Background())
		assert.Empty(t, raw)
	})
}

func TestTicketListServerError(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	server.Fail(http.MethodGet, "/tickets", http.StatusInternalServerError, `{"detail":"database unavailable"}`)

	raw := server.Token(backendtest.Employee)
	store := token.NewMemory(raw)
	list := NewTicketList(newClient(t, server, store), store)
	require.NoError(t, list.Mount(context.Background()))

	view := list.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, "database unavailable", view.Error)
	assert.Equal(t, RouteNone, view.Route)
	current, _ := store.Get(context.Background())
	assert.Equal(t, raw, current)
}

func TestTicketCreate(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	store := token.NewMemory(server.Token(backendtest.Employee))
	create := NewTicketCreate(newClient(t, server, store))

	assert.Equal(t, ticket.PriorityMedium, create.View().Form.Priority)

	require.NoError(t, create.Submit(context.Background(), TicketForm{
		Title:       "Printer down",
		Description: "No toner",
		Priority:    ticket.PriorityCritical,
	}))
	view := create.View()
	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, RouteTickets, view.Route)
	require.NotNil(t, view.Created)
	assert.Equal(t, ticket.StatusOpen, view.Created.Status)
	assert.Equal(t, ticket.PriorityCritical, view.Created.Priority)
	assert.Equal(t, BlankTicketForm(), view.Form)
}

func TestTicketCreateKeepsFieldsOnFailure(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	store := token.NewMemory(server.Token(backendtest.Employee))
	create := NewTicketCreate(newClient(t, server, store))

	form := TicketForm{Title: "Printer down", Description: "No toner", Priority: "Urgent"}
	require.NoError(t, create.Submit(context.Background(), form))

	view := create.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, form, view.Form)
	assert.Contains(t, view.Error, "priority")
	assert.Nil(t, view.Created)
	assert.Zero(t, server.Hits(http.MethodPost, "/tickets"))

	create.Reset()
	assert.Equal(t, TicketCreateView{Form: BlankTicketForm()}, create.View())
}

func TestTicketDetail(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	obj := server.Seed(backendtest.Employee, "Printer down", "No toner", ticket.PriorityHigh)
	server.SeedComment(backendtest.Admin, obj.ID, "On it")

	store := token.NewMemory(server.Token(backendtest.Employee))
	detail := NewTicketDetail(newClient(t, server, store))
	require.NoError(t, detail.Mount(context.Background(), obj.ID))

	view := detail.View()
	assert.Equal(t, StateReady, view.State)
	require.NotNil(t, view.Ticket)
	assert.Equal(t, "Printer down", view.Ticket.Title)
	require.Len(t, view.Comments, 1)

	t.Run("blank comment stays local", func(t *testing.T) {
		require.NoError(t, detail.SubmitComment(context.Background(), "  \n\t "))
		assert.Equal(t, "Comment cannot be empty.", detail.View().CommentError)
		assert.Zero(t, server.Hits(http.MethodPost, "/tickets/1/comments"))
	})

	t.Run("comment is prepended", func(t *testing.T) {
		require.NoError(t, detail.SubmitComment(context.Background(), "Thanks"))
		view := detail.View()
		assert.Empty(t, view.CommentError)
		assert.Empty(t, view.Draft)
		require.Len(t, view.Comments, 2)
		assert.Equal(t, "Thanks", view.Comments[0].Content)
		assert.Equal(t, "On it", view.Comments[1].Content)
	})

	t.Run("delete failure keeps the page", func(t *testing.T) {
		require.NoError(t, detail.Delete(context.Background()))
		view := detail.View()
		assert.Equal(t, "Not authorized to delete tickets", view.DeleteError)
		assert.Empty(t, view.Error)
		assert.Empty(t, view.CommentError)
		assert.Equal(t, StateReady, view.State)
		assert.Equal(t, RouteNone, view.Route)
	})
}

func TestTicketDetailFailedComment(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	obj := server.Seed(backendtest.Employee, "Printer down", "", ticket.PriorityHigh)
	server.Fail(http.MethodPost, "/tickets/1/comments", http.StatusUnprocessableEntity,
		`{"detail":[{"loc":["body","content"],"msg":"field required"}]}`)

	store := token.NewMemory(server.Token(backendtest.Employee))
	detail := NewTicketDetail(newClient(t, server, store))
	require.NoError(t, detail.Mount(context.Background(), obj.ID))
	require.NoError(t, detail.SubmitComment(context.Background(), "Thanks"))

	view := detail.View()
	assert.Equal(t, "content: field required", view.CommentError)
	assert.Equal(t, "Thanks", view.Draft)
	assert.Empty(t, view.Comments)
	assert.False(t, view.Commenting)
}

func TestTicketDetailLoadIsAtomic(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	obj := server.Seed(backendtest.Employee, "Printer down", "", ticket.PriorityHigh)
	server.Fail(http.MethodGet, "/tickets/1/comments", http.StatusInternalServerError, "")

	store := token.NewMemory(server.Token(backendtest.Employee))
	detail := NewTicketDetail(newClient(t, server, store))
	require.NoError(t, detail.Mount(context.Background(), obj.ID))

	view := detail.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, "HTTP error! status: 500", view.Error)
	assert.Nil(t, view.Ticket)
	assert.Empty(t, view.Comments)
}

func TestTicketDetailNotFound(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	store := token.NewMemory(server.Token(backendtest.Employee))
	detail := NewTicketDetail(newClient(t, server, store))

	require.NoError(t, detail.Mount(context.Background(), 42))
	assert.Equal(t, StateError, detail.View().State)
	assert.Equal(t, "Ticket not found", detail.View().Error)
}

func TestDeleteThenRefetch(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	obj := server.Seed(backendtest.Employee, "Printer down", "", ticket.PriorityHigh)
	kept := server.Seed(backendtest.Employee, "VPN", "", ticket.PriorityLow)

	store := token.NewMemory(server.Token(backendtest.Admin))
	client := newClient(t, server, store)
	detail := NewTicketDetail(client)
	require.NoError(t, detail.Mount(context.Background(), obj.ID))
	require.NoError(t, detail.Delete(context.Background()))
	assert.Equal(t, RouteTickets, detail.View().Route)
	assert.Empty(t, detail.View().DeleteError)

	list := NewTicketList(client, store)
	require.NoError(t, list.Mount(context.Background()))
	tickets := list.View().Tickets
	require.Len(t, tickets, 1)
	assert.Equal(t, kept.ID, tickets[0].ID)

	// Deleting again reports the missing ticket
	require.NoError(t, detail.Delete(context.Background()))
	assert.Equal(t, "Ticket not found", detail.View().DeleteError)
}

func TestTicketDetailNotMounted(t *testing.T) {
	detail := NewTicketDetail(&fakeViewer{})
	assert.ErrorIs(t, detail.SubmitComment(context.Background(), "x"), ErrNotMounted)
	assert.ErrorIs(t, detail.Delete(context.Background()), ErrNotMounted)
}

// failingViewer fails both detail requests, answering the ticket request after the given delay
type failingViewer struct {
	ticketDelay time.Duration
	added       atomic.Int32
	deleted     atomic.Int32
}

func (viewer *failingViewer) GetTicket(ctx context.Context, _ int64) (*ticket.Ticket, error) {
	select {
	case <-time.After(viewer.ticketDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, &backend.Error{Kind: backend.ErrNotFound, Status: http.StatusNotFound, Message: "Ticket not found"}
}

func (viewer *failingViewer) ListComments(_ context.Context, _ int64) ([]ticket.Comment, error) {
	return nil, &backend.Error{Kind: backend.ErrRequest, Status: http.StatusInternalServerError, Message: "HTTP error! status: 500"}
}

func (viewer *failingViewer) AddComment(_ context.Context, ticketID int64, create ticket.CommentCreate) (*ticket.Comment, error) {
	viewer.added.Add(1)
	return &ticket.Comment{ID: 1, TicketID: ticketID, Content: create.Content}, nil
}

func (viewer *failingViewer) DeleteTicket(_ context.Context, _ int64) error {
	viewer.deleted.Add(1)
	return nil
}

func TestTicketDetailPrefersTicketError(t *testing.T) {
	viewer := &failingViewer{ticketDelay: 50 * time.Millisecond}
	detail := NewTicketDetail(viewer)

	require.NoError(t, detail.Mount(context.Background(), 1))
	view := detail.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, "Ticket not found", view.Error)
}

func TestTicketDetailActionsRequireLoadedTicket(t *testing.T) {
	viewer := &failingViewer{}
	detail := NewTicketDetail(viewer)
	require.NoError(t, detail.Mount(context.Background(), 1))
	require.Equal(t, StateError, detail.View().State)

	assert.ErrorIs(t, detail.SubmitComment(context.Background(), "hello"), ErrNotReady)
	assert.ErrorIs(t, detail.Delete(context.Background()), ErrNotReady)
	assert.Zero(t, viewer.added.Load())
	assert.Zero(t, viewer.deleted.Load())

	view := detail.View()
	assert.Equal(t, StateError, view.State)
	assert.Empty(t, view.Comments)
	assert.Empty(t, view.CommentError)
	assert.Empty(t, view.DeleteError)
	assert.Equal(t, RouteNone, view.Route)
}

func TestTicketDetailCommentOnMissingTicket(t *testing.T) {
	server := backendtest.NewServer()
	defer server.Close()
	store := token.NewMemory(server.Token(backendtest.Employee))
	detail := NewTicketDetail(newClient(t, server, store))

	require.NoError(t, detail.Mount(context.Background(), 42))
	assert.ErrorIs(t, detail.SubmitComment(context.Background(), "hello"), ErrNotReady)
	assert.Zero(t, server.Hits(http.MethodPost, "/tickets/42/comments"))
}
