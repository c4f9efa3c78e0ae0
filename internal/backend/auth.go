package backend

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

// errMissingAccessToken is the suffix of the error oauth2 reports for 2xx token responses lacking a token
const errMissingAccessToken = "missing access_token"

// Authenticate exchanges the credentials of a user for a session token using the OAuth2 password grant.
// The caller is responsible for persisting the returned token.
func (client *Client) Authenticate(ctx context.Context, email, password string) (*oauth2.Token, error) {
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, client.httpClient)
	tok, err := client.oauth.PasswordCredentialsToken(oauthCtx, email, password)
	if err == nil {
		return tok, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		message := parseDetail(retrieveErr.Body)
		if message == "" {
			message = statusMessage(status)
		}
		return nil, &Error{
			Kind:    ErrAuth,
			Status:  status,
			Message: message,
		}
	}

	// oauth2 does not wrap transport errors, so cancellation has to be taken from the context itself
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, requestError(ctxErr)
	}
	if strings.HasSuffix(err.Error(), errMissingAccessToken) {
		return nil, &Error{
			Kind:    ErrAuth,
			Message: "Login successful, but no token received.",
			Cause:   err,
		}
	}
	return nil, requestError(err)
}
