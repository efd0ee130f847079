// Package server exposes the document store over HTTP/JSON with an SSE
// push channel, implementing the remote-store contract the workspace
// controller consumes.
package server

import (
	"sync"

	"github.com/magpsaad/partner-calculator/internal/middleware"
	"github.com/magpsaad/partner-calculator/internal/models"
)

// subscriberBuffer is how many undelivered snapshots a subscriber may lag
// behind before newer ones start displacing older ones. Snapshots are
// whole-document, so delivering only the latest is always correct.
const subscriberBuffer = 8

// Hub fans confirmed document writes out to the push subscribers of each
// workspace. Broadcast never blocks on a slow subscriber.
type Hub struct {
	mu     sync.Mutex
	nextID int64
	subs   map[string]map[int64]chan *models.Workspace
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int64]chan *models.Workspace)}
}

// Subscribe registers a push channel for a workspace. The returned cancel
// function releases the subscription and closes the channel.
func (h *Hub) Subscribe(workspaceID string) (<-chan *models.Workspace, func()) {
	ch := make(chan *models.Workspace, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[int64]chan *models.Workspace)
	}
	h.subs[workspaceID][id] = ch
	h.mu.Unlock()

	middleware.TrackSubscriber(1)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[workspaceID], id)
			if len(h.subs[workspaceID]) == 0 {
				delete(h.subs, workspaceID)
			}
			h.mu.Unlock()
			close(ch)
			middleware.TrackSubscriber(-1)
		})
	}
	return ch, cancel
}

// Broadcast delivers a snapshot to every subscriber of the workspace,
// including the writer's own subscription. Each subscriber gets its own
// deep copy. A subscriber whose buffer is full has its oldest pending
// snapshot dropped in favor of the new one.
func (h *Hub) Broadcast(workspaceID string, state *models.Workspace) {
	// Holding the lock across the sends keeps cancel (which closes the
	// channel) from interleaving with them. All sends are non-blocking.
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[workspaceID] {
		snapshot := state.Clone()
		for {
			select {
			case ch <- snapshot:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
