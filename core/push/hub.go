package push

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chrouos/tomato-website-sub000/core"
)

// EventHeartbeat is a synthetic event written to every connection on
// each sweep so intermediaries do not close idle streams.
const EventHeartbeat = "heartbeat"

// Hub is the publish façade every feature goes through. It owns the
// registry's periodic sweep; the sweep runs for the life of the process
// and is stopped explicitly on shutdown.
type Hub struct {
	reg      *Registry
	logger   core.Logger
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHub(reg *Registry, logger core.Logger, conf *core.Config) *Hub {
	interval := conf.Server.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	h := &Hub{
		reg:      reg,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
	go h.heartbeatLoop()
	return h
}

func (h *Hub) Subscribe(userID string) *Subscriber { return h.reg.Subscribe(userID) }
func (h *Hub) Unsubscribe(sub *Subscriber)         { h.reg.Unsubscribe(sub) }

// PublishToUser fans data out to all of userID's open connections.
func (h *Hub) PublishToUser(userID, event string, data interface{}) {
	h.PublishToUsers([]string{userID}, event, data)
}

// PublishToUsers fans data out to every connection of every target
// user. All recipients of one call share a single message id so client
// consumers can deduplicate across tabs.
func (h *Hub) PublishToUsers(userIDs []string, event string, data interface{}) {
	h.reg.Publish(userIDs, Frame{
		ID:    uuid.New().String(),
		Event: event,
		Data:  data,
	})
}

// Stop halts the heartbeat sweep. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// heartbeatLoop runs on its own ticker so a burst of publishes can
// never starve the sweep, and a publish never waits on it.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			evicted := h.reg.Sweep(Frame{
				Event: EventHeartbeat,
				Data:  map[string]interface{}{"timestamp": now.UTC()},
			})
			if evicted > 0 {
				h.logger.Debug("heartbeat sweep evicted dead connections", map[string]interface{}{"count": evicted})
			}
		}
	}
}
