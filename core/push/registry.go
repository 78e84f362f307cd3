package push

import (
	"errors"
	"sync"
)

// subscriberBuffer bounds how many frames may queue per connection. A
// consumer that falls this far behind is treated as dead: fan-out never
// blocks on it and it gets evicted instead.
const subscriberBuffer = 32

var (
	errClosed       = errors.New("subscriber closed")
	errSlowConsumer = errors.New("subscriber buffer full")
)

type (
	// Frame is one message pushed to a subscriber.
	Frame struct {
		ID    string      `json:"id,omitempty"`
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}

	// Subscriber is one open push connection, owned by exactly one user.
	// A user may hold many (tabs, devices). It is never persisted.
	Subscriber struct {
		userID string
		frames chan Frame

		closeOnce sync.Once
		closed    chan struct{}
	}

	// Registry tracks the set of open subscribers per user and delivers
	// frames to all of a user's connections. Safe for concurrent
	// subscribe/unsubscribe/publish/sweep.
	Registry struct {
		mut  sync.RWMutex
		subs map[string]map[*Subscriber]struct{}
	}
)

func (s *Subscriber) UserID() string { return s.userID }

// Frames is the stream the connection handler drains.
func (s *Subscriber) Frames() <-chan Frame { return s.frames }

// Done is closed when the subscriber is evicted or unsubscribed.
func (s *Subscriber) Done() <-chan struct{} { return s.closed }

// send never blocks; the frames channel is buffered and never closed,
// so a racing send after close is harmless.
func (s *Subscriber) send(frame Frame) error {
	select {
	case <-s.closed:
		return errClosed
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		return errSlowConsumer
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new connection for userID.
func (r *Registry) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		frames: make(chan Frame, subscriberBuffer),
		closed: make(chan struct{}),
	}

	r.mut.Lock()
	defer r.mut.Unlock()
	set, ok := r.subs[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		r.subs[userID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes it; the user's entry disappears
// with its last connection. Safe to call more than once.
func (r *Registry) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	sub.close()

	r.mut.Lock()
	defer r.mut.Unlock()
	r.evict(sub)
}

// evict removes sub from the map; callers must hold the write lock.
func (r *Registry) evict(sub *Subscriber) {
	if set, ok := r.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subs, sub.userID)
		}
	}
}

// Publish delivers frame to every open connection of every target user.
// Delivery is fire-and-forget: a connection that cannot take the frame
// is evicted, and no error ever reaches the caller.
func (r *Registry) Publish(userIDs []string, frame Frame) {
	r.mut.RLock()
	var targets []*Subscriber
	for _, id := range userIDs {
		for sub := range r.subs[id] {
			targets = append(targets, sub)
		}
	}
	r.mut.RUnlock()

	r.deliver(targets, frame)
}

// Sweep writes frame (a heartbeat) to every connection in the registry,
// evicting any that fail, and reports how many were evicted. It keeps
// idle connections alive through proxies and clears out dead ones.
func (r *Registry) Sweep(frame Frame) int {
	r.mut.RLock()
	var targets []*Subscriber
	for _, set := range r.subs {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	r.mut.RUnlock()

	return r.deliver(targets, frame)
}

func (r *Registry) deliver(targets []*Subscriber, frame Frame) int {
	var failed []*Subscriber
	for _, sub := range targets {
		if err := sub.send(frame); err != nil {
			failed = append(failed, sub)
		}
	}
	if len(failed) == 0 {
		return 0
	}

	r.mut.Lock()
	defer r.mut.Unlock()
	for _, sub := range failed {
		sub.close()
		r.evict(sub)
	}
	return len(failed)
}

// Count reports how many connections userID currently holds.
func (r *Registry) Count(userID string) int {
	r.mut.RLock()
	defer r.mut.RUnlock()
	return len(r.subs[userID])
}
