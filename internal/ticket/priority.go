package ticket

// Priority represents one of the fixed priority levels a ticket may have
type Priority string

const (
	PriorityLow      Priority = "Faible"
	PriorityMedium   Priority = "Moyenne"
	PriorityHigh     Priority = "Élevée"
	PriorityCritical Priority = "Critique"
)

// DefaultPriority is the priority new tickets are pre-filled with
const DefaultPriority = PriorityMedium

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Priorities returns all priority levels ordered from lowest to highest
func Priorities() []Priority {
	cpy := make([]Priority, len(priorities))
	copy(cpy, priorities)
	return cpy
}

// Valid checks if the priority is one of the fixed priority levels
func (priority Priority) Valid() bool {
	for _, known := range priorities {
		if priority == known {
			return true
		}
	}
	return false
}

// Status represents the processing status of a ticket.
// The set of statuses is owned by the backend; the constants only name the known ones.
type Status string

const (
	StatusOpen       Status = "Ouvert"
	StatusInProgress Status = "En cours"
	StatusResolved   Status = "Résolu"
	StatusClosed     Status = "Fermé"
)
