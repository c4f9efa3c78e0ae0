package backend

import (
	"context"
	"net/http"

	"github.com/skybi/ticketdesk/internal/ticket"
)

// ListComments retrieves the comments of a ticket
func (client *Client) ListComments(ctx context.Context, ticketID int64) ([]ticket.Comment, error) {
	request, err := client.newRequest(ctx, http.MethodGet, client.endpoint("tickets", formatID(ticketID), "comments"), nil)
	if err != nil {
		return nil, err
	}
	comments, err := fetch[[]ticket.Comment](client, request, taxonomyLookup)
	if err != nil {
		return nil, err
	}
	if *comments == nil {
		return []ticket.Comment{}, nil
	}
	return *comments, nil
}

// AddComment adds a comment to a ticket.
// Callers must make sure the content is not blank; the client sends it as is.
func (client *Client) AddComment(ctx context.Context, ticketID int64, create ticket.CommentCreate) (*ticket.Comment, error) {
	request, err := client.newRequest(ctx, http.MethodPost, client.endpoint("tickets", formatID(ticketID), "comments"), create)
	if err != nil {
		return nil, err
	}
	return fetch[ticket.Comment](client, request, taxonomySubmit)
}
