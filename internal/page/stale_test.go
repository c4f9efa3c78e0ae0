package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeViewer answers detail requests immediately unless a gate is registered for the ticket ID
type fakeViewer struct {
	mtx     sync.Mutex
	gates   map[int64]chan struct{}
	started chan int64
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		gates:   make(map[int64]chan struct{}),
		started: make(chan int64, 16),
	}
}

func (viewer *fakeViewer) gate(id int64) chan struct{} {
	viewer.mtx.Lock()
	defer viewer.mtx.Unlock()
	gate := make(chan struct{})
	viewer.gates[id] = gate
	return gate
}

func (viewer *fakeViewer) wait(ctx context.Context, id int64) error {
	viewer.mtx.Lock()
	gate := viewer.gates[id]
	viewer.mtx.Unlock()
	if viewer.started != nil {
		viewer.started <- id
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (viewer *fakeViewer) GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error) {
	if err := viewer.wait(ctx, id); err != nil {
		return nil, err
	}
	return &ticket.Ticket{ID: id, Title: "ticket", Status: ticket.StatusOpen, Priority: ticket.DefaultPriority}, nil
}

func (viewer *fakeViewer) ListComments(_ context.Context, _ int64) ([]ticket.Comment, error) {
	return []ticket.Comment{}, nil
}

func (viewer *fakeViewer) AddComment(ctx context.Context, ticketID int64, create ticket.CommentCreate) (*ticket.Comment, error) {
	if err := viewer.wait(ctx, ticketID); err != nil {
		return nil, err
	}
	return &ticket.Comment{ID: 1, TicketID: ticketID, Content: create.Content}, nil
}

func (viewer *fakeViewer) DeleteTicket(ctx context.Context, id int64) error {
	return viewer.wait(ctx, -id)
}

func awaitStart(t *testing.T, viewer *fakeViewer, id int64) {
	t.Helper()
	for {
		select {
		case started := <-viewer.started:
			if started == id {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("request for %d never started", id)
		}
	}
}

func TestMountDiscardedAfterUnmount(t *testing.T) {
	viewer := newFakeViewer()
	gate := viewer.gate(1)
	detail := NewTicketDetail(viewer)

	done := make(chan error, 1)
	go func() {
		done <- detail.Mount(context.Background(), 1)
	}()
	awaitStart(t, viewer, 1)
	assert.Equal(t, StateLoading, detail.View().State)

	detail.Unmount()
	close(gate)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, TicketDetailView{}, detail.View())
}

func TestMountDiscardedAfterIDChange(t *testing.T) {
	viewer := newFakeViewer()
	gate := viewer.gate(1)
	detail := NewTicketDetail(viewer)

	done := make(chan error, 1)
	go func() {
		done <- detail.Mount(context.Background(), 1)
	}()
	awaitStart(t, viewer, 1)

	require.NoError(t, detail.Mount(context.Background(), 2))
	close(gate)
	assert.ErrorIs(t, <-done, ErrStale)

	view := detail.View()
	assert.Equal(t, int64(2), view.ID)
	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, int64(2), view.Ticket.ID)
}

func TestMountSameIDIsBusy(t *testing.T) {
	viewer := newFakeViewer()
	gate := viewer.gate(1)
	detail := NewTicketDetail(viewer)

	done := make(chan error, 1)
	go func() {
		done <- detail.Mount(context.Background(), 1)
	}()
	awaitStart(t, viewer, 1)

	assert.ErrorIs(t, detail.Mount(context.Background(), 1), ErrBusy)
	close(gate)
	assert.NoError(t, <-done)
	assert.Equal(t, StateReady, detail.View().State)
}

func TestMountCanceled(t *testing.T) {
	viewer := newFakeViewer()
	viewer.gate(1)
	detail := NewTicketDetail(viewer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- detail.Mount(ctx, 1)
	}()
	awaitStart(t, viewer, 1)
	cancel()

	assert.ErrorIs(t, <-done, ErrStale)
	view := detail.View()
	assert.Equal(t, StateIdle, view.State)
	assert.Empty(t, view.Error)
}

func TestCommentBusyWhileDeletePending(t *testing.T) {
	viewer := newFakeViewer()
	detail := NewTicketDetail(viewer)
	require.NoError(t, detail.Mount(context.Background(), 1))
	awaitStart(t, viewer, 1)

	commentGate := viewer.gate(1)
	deleteGate := viewer.gate(-1)

	comment := make(chan error, 1)
	go func() {
		comment <- detail.SubmitComment(context.Background(), "first")
	}()
	awaitStart(t, viewer, 1)
	assert.True(t, detail.View().Commenting)
	assert.ErrorIs(t, detail.SubmitComment(context.Background(), "second"), ErrBusy)

	// Deletion is an independent substate
	remove := make(chan error, 1)
	go func() {
		remove <- detail.Delete(context.Background())
	}()
	awaitStart(t, viewer, -1)
	assert.True(t, detail.View().Deleting)
	assert.ErrorIs(t, detail.Delete(context.Background()), ErrBusy)

	close(commentGate)
	require.NoError(t, <-comment)
	close(deleteGate)
	require.NoError(t, <-remove)

	view := detail.View()
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "first", view.Comments[0].Content)
	assert.Equal(t, RouteTickets, view.Route)
}

func TestCommentDiscardedAfterUnmount(t *testing.T) {
	viewer := newFakeViewer()
	detail := NewTicketDetail(viewer)
	require.NoError(t, detail.Mount(context.Background(), 1))
	awaitStart(t, viewer, 1)
	gate := viewer.gate(1)

	done := make(chan error, 1)
	go func() {
		done <- detail.SubmitComment(context.Background(), "late")
	}()
	awaitStart(t, viewer, 1)
	detail.Unmount()
	close(gate)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Empty(t, detail.View().Comments)
}

func TestActionsRejectedWhileLoading(t *testing.T) {
	viewer := newFakeViewer()
	detail := NewTicketDetail(viewer)
	gate := viewer.gate(1)

	done := make(chan error, 1)
	go func() {
		done <- detail.Mount(context.Background(), 1)
	}()
	awaitStart(t, viewer, 1)

	assert.ErrorIs(t, detail.SubmitComment(context.Background(), "early"), ErrNotReady)
	assert.ErrorIs(t, detail.Delete(context.Background()), ErrNotReady)

	close(gate)
	require.NoError(t, <-done)
	view := detail.View()
	assert.Equal(t, StateReady, view.State)
	assert.Empty(t, view.Comments)
	assert.Empty(t, view.Draft)
}
