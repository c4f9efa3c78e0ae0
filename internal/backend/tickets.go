package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/skybi/ticketdesk/internal/ticket"
)

// ListTickets retrieves all tickets visible to the authenticated user
func (client *Client) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	request, err := client.newRequest(ctx, http.MethodGet, client.endpoint("tickets"), nil)
	if err != nil {
		return nil, err
	}
	tickets, err := fetch[[]ticket.Ticket](client, request, taxonomyList)
	if err != nil {
		return nil, err
	}
	if *tickets == nil {
		return []ticket.Ticket{}, nil
	}
	return *tickets, nil
}

// CreateTicket creates a new ticket.
// Priorities outside the fixed set are rejected with ErrValidation without contacting the backend.
func (client *Client) CreateTicket(ctx context.Context, create ticket.Create) (*ticket.Ticket, error) {
	if !create.Priority.Valid() {
		return nil, &Error{
			Kind:    ErrValidation,
			Status:  http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("priority: must be one of %s (got %q)", joinPriorities(), create.Priority),
		}
	}

	request, err := client.newRequest(ctx, http.MethodPost, client.endpoint("tickets"), create)
	if err != nil {
		return nil, err
	}
	return fetch[ticket.Ticket](client, request, taxonomySubmit)
}

// GetTicket retrieves a single ticket by its ID
func (client *Client) GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error) {
	request, err := client.newRequest(ctx, http.MethodGet, client.endpoint("tickets", formatID(id)), nil)
	if err != nil {
		return nil, err
	}
	return fetch[ticket.Ticket](client, request, taxonomyLookup)
}

// DeleteTicket deletes a ticket by its ID.
// Every 2xx status counts as success, whether or not a body was sent.
func (client *Client) DeleteTicket(ctx context.Context, id int64) error {
	request, err := client.newRequest(ctx, http.MethodDelete, client.endpoint("tickets", formatID(id)), nil)
	if err != nil {
		return err
	}
	_, err = client.exchange(request, taxonomyLookup)
	return err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func joinPriorities() string {
	priorities := ticket.Priorities()
	names := make([]string, 0, len(priorities))
	for _, priority := range priorities {
		names = append(names, string(priority))
	}
	return strings.Join(names, ", ")
}
