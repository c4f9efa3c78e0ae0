package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/token"
)

const cookieNameSession = "session_token"

type contextKey int

const (
	contextKeySession contextKey = iota
	contextKeyTicketID
)

// sessionTokens binds the token store interface to a browser session.
// Setting a token creates a new session (terminating the previous one), clearing it terminates the session.
type sessionTokens struct {
	repo     session.Repository
	lifetime time.Duration

	mtx     sync.Mutex
	rawID   string
	current *session.Session

	// hash is the ID of the last bound session; it survives Clear
	hash string
}

var _ token.Store = (*sessionTokens)(nil)

func newSessionTokens(repo session.Repository, lifetime time.Duration) *sessionTokens {
	return &sessionTokens{
		repo:     repo,
		lifetime: lifetime,
	}
}

// Get retrieves the access token of the bound session
func (tokens *sessionTokens) Get(_ context.Context) (string, error) {
	tokens.mtx.Lock()
	defer tokens.mtx.Unlock()
	if tokens.current == nil {
		return "", nil
	}
	return tokens.current.AccessToken, nil
}

// Set creates a new session holding the given token.
// The session expires with the token if that expires before the configured session lifetime.
func (tokens *sessionTokens) Set(ctx context.Context, raw string) error {
	if raw == "" {
		return tokens.Clear(ctx)
	}

	expires := time.Now().Add(tokens.lifetime)
	var subject string
	if claims, err := token.Inspect(raw); err == nil {
		subject = claims.Subject
		if !claims.Expires.IsZero() && claims.Expires.Before(expires) {
			expires = claims.Expires
		}
	} else {
		log.Debug().Err(err).Msg("session token is no readable JWT")
	}

	created, rawID, err := tokens.repo.Create(ctx, &session.Create{
		AccessToken: raw,
		Subject:     subject,
		Expires:     expires.Unix(),
	})
	if err != nil {
		return err
	}

	tokens.mtx.Lock()
	previous := tokens.rawID
	tokens.rawID, tokens.current, tokens.hash = rawID, created, created.ID
	tokens.mtx.Unlock()

	if previous != "" {
		return tokens.repo.Terminate(ctx, previous)
	}
	return nil
}

// Clear terminates the bound session
func (tokens *sessionTokens) Clear(ctx context.Context) error {
	tokens.mtx.Lock()
	rawID := tokens.rawID
	tokens.rawID, tokens.current = "", nil
	tokens.mtx.Unlock()

	if rawID == "" {
		return nil
	}
	return tokens.repo.Terminate(ctx, rawID)
}

func (tokens *sessionTokens) session() (*session.Session, string) {
	tokens.mtx.Lock()
	defer tokens.mtx.Unlock()
	return tokens.current, tokens.rawID
}

func (tokens *sessionTokens) id() string {
	tokens.mtx.Lock()
	defer tokens.mtx.Unlock()
	return tokens.hash
}

// lookupSession resolves the session referenced by the cookie of the given request.
// The returned store is bound to that session; nil is returned if there is no valid session.
func (service *Service) lookupSession(request *http.Request) (*sessionTokens, error) {
	cookie, err := request.Cookie(cookieNameSession)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	obj, err := service.Sessions.GetByRawID(request.Context(), cookie.Value)
	if err != nil || obj == nil {
		return nil, err
	}
	tokens := newSessionTokens(service.Sessions, service.Config.SessionLifetime)
	tokens.rawID, tokens.current, tokens.hash = cookie.Value, obj, obj.ID
	return tokens, nil
}

func sessionFromContext(ctx context.Context) *sessionTokens {
	tokens, _ := ctx.Value(contextKeySession).(*sessionTokens)
	return tokens
}

func (service *Service) setSessionCookie(writer http.ResponseWriter, rawID string, expires int64) {
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameSession,
		Value:    rawID,
		Path:     "/",
		Expires:  time.Unix(expires, 0),
		Secure:   service.Config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (service *Service) clearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameSession,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   service.Config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// terminate terminates the session bound to tokens (if still alive) and discards everything tied to it
func (service *Service) terminate(ctx context.Context, tokens *sessionTokens) {
	if tokens == nil {
		return
	}
	if id := tokens.id(); id != "" {
		service.pages.drop(id)
	}
	if err := tokens.Clear(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("could not terminate a browser session")
	}
}

// endSession terminates the session bound to tokens and unsets the session cookie
func (service *Service) endSession(writer http.ResponseWriter, request *http.Request, tokens *sessionTokens) {
	service.terminate(request.Context(), tokens)
	service.clearSessionCookie(writer)
}
