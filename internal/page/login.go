package page

import (
	"context"
	"fmt"
	"sync"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/token"
)

// LoginView is a snapshot of the login page
type LoginView struct {
	State State
	Email string
	Error string
	Route Route
}

// Submitting reports whether the form has to be disabled
func (view LoginView) Submitting() bool {
	return view.State == StateLoading
}

// Login controls the login page
type Login struct {
	auth   Authenticator
	tokens token.Store

	submit flight
	mtx    sync.RWMutex
	view   LoginView
}

// NewLogin creates a new login page controller persisting the obtained token in the given store
func NewLogin(auth Authenticator, tokens token.Store) *Login {
	return &Login{
		auth:   auth,
		tokens: tokens,
	}
}

// View returns the current snapshot of the page
func (login *Login) View() LoginView {
	login.mtx.RLock()
	defer login.mtx.RUnlock()
	return login.view
}

// Submit exchanges the given credentials for a session token.
// On success the token is persisted and RouteTickets is signaled; on failure the message is shown and nothing is
// persisted.
func (login *Login) Submit(ctx context.Context, email, password string) error {
	if !login.submit.acquire() {
		return ErrBusy
	}
	defer login.submit.release()

	login.set(LoginView{State: StateLoading, Email: email})

	tok, err := login.auth.Authenticate(ctx, email, password)
	if err != nil {
		if torndown(ctx, err) {
			login.set(LoginView{State: StateIdle, Email: email})
			return ErrStale
		}
		login.set(LoginView{State: StateError, Email: email, Error: backend.Message(err)})
		return nil
	}

	if err := login.tokens.Set(ctx, tok.AccessToken); err != nil {
		login.set(LoginView{State: StateError, Email: email, Error: "Could not store the session. Please try again."})
		return fmt.Errorf("could not persist the session token: %w", err)
	}
	login.set(LoginView{State: StateReady, Email: email, Route: RouteTickets})
	return nil
}

func (login *Login) set(view LoginView) {
	login.mtx.Lock()
	defer login.mtx.Unlock()
	login.view = view
}
