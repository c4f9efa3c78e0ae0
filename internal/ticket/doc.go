// Package ticket defines the ticket and comment data passed through the client.
// The backend owns these entities; nothing in this package enforces business rules beyond the fixed priority set.
package ticket
