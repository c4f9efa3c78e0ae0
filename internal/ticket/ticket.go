package ticket

// Ticket represents a unit of reported work tracked by the backend
type Ticket struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority"`
	CreatorID    int64     `json:"creator_id"`
	TechnicianID *int64    `json:"technician_id"`
	Created      Timestamp `json:"date_creation"`
	Updated      Timestamp `json:"date_mise_a_jour"`
}

// Assigned returns whether a technician is assigned to the ticket
func (ticket *Ticket) Assigned() bool {
	return ticket.TechnicianID != nil
}

// Create is used to create a new ticket
type Create struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Comment represents a timestamped note attached to exactly one ticket
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatorID int64     `json:"creator_id"`
	TicketID  int64     `json:"ticket_id"`
	Created   Timestamp `json:"date_creation"`
}

// CommentCreate is used to add a comment to a ticket
type CommentCreate struct {
	Content string `json:"content"`
}
