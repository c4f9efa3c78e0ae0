package web

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skybi/ticketdesk/internal/hashmap"
	"github.com/skybi/ticketdesk/internal/page"
)

// registry keeps the stateful page controllers of browser sessions alive between requests.
// Controllers are keyed by session ID (and ticket ID for detail pages) and expire after a period of inactivity.
type registry struct {
	// createMtx makes looking up or creating a creation controller atomic
	createMtx sync.Mutex
	creates   *hashmap.ExpiringMap[string, *page.TicketCreate]
	details   *hashmap.ExpiringMap[string, *page.TicketDetail]
}

func newRegistry(lifetime time.Duration) *registry {
	creates := hashmap.NewExpiring[string, *page.TicketCreate](lifetime)
	creates.ScheduleCleanupTask(time.Minute)
	details := hashmap.NewExpiring[string, *page.TicketDetail](lifetime)
	details.ScheduleCleanupTask(time.Minute)
	return &registry{
		creates: creates,
		details: details,
	}
}

func detailKey(sessionID string, ticketID int64) string {
	return sessionID + ":" + strconv.FormatInt(ticketID, 10)
}

// create returns the ticket creation controller of a session, creating it using factory if needed
func (reg *registry) create(sessionID string, factory func() *page.TicketCreate) *page.TicketCreate {
	reg.createMtx.Lock()
	defer reg.createMtx.Unlock()
	controller, ok := reg.creates.Lookup(sessionID)
	if !ok {
		controller = factory()
	}
	reg.creates.Set(sessionID, controller)
	return controller
}

// detail returns the ticket detail controller of a session for a ticket
func (reg *registry) detail(sessionID string, ticketID int64) (*page.TicketDetail, bool) {
	controller, ok := reg.details.Lookup(detailKey(sessionID, ticketID))
	if ok {
		reg.details.Set(detailKey(sessionID, ticketID), controller)
	}
	return controller, ok
}

// putDetail registers a mounted ticket detail controller, unmounting the one it replaces
func (reg *registry) putDetail(sessionID string, ticketID int64, controller *page.TicketDetail) {
	key := detailKey(sessionID, ticketID)
	if previous, ok := reg.details.Swap(key); ok && previous != controller {
		previous.Unmount()
	}
	reg.details.Set(key, controller)
}

// dropDetail unmounts and forgets the ticket detail controller of a session for a ticket
func (reg *registry) dropDetail(sessionID string, ticketID int64) {
	if controller, ok := reg.details.Swap(detailKey(sessionID, ticketID)); ok {
		controller.Unmount()
	}
}

// drop unmounts and forgets all controllers of a session
func (reg *registry) drop(sessionID string) {
	reg.creates.Unset(sessionID)
	prefix := sessionID + ":"
	reg.details.BootstrappedManipulation(func(underlying map[string]*page.TicketDetail) {
		for key, controller := range underlying {
			if strings.HasPrefix(key, prefix) {
				controller.Unmount()
				delete(underlying, key)
			}
		}
	})
}

func (reg *registry) close() {
	reg.creates.StopCleanupTask()
	reg.details.StopCleanupTask()
}
