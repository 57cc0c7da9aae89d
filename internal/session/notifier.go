package session

import (
	"sync"
	"time"
)

// DefaultNotificationTTL matches how long a notification stays on screen.
const DefaultNotificationTTL = 6 * time.Second

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type Notification struct {
	ID        uint64    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier holds at most one live notification and fans new ones out to
// subscribers.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	seq     uint64
	current *Notification
	subs    map[int]chan Notification
	nextSub int
}

func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{
		ttl:  ttl,
		now:  time.Now,
		subs: make(map[int]chan Notification),
	}
}

func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

func (n *Notifier) TTL() time.Duration {
	return n.ttl
}

func (n *Notifier) Success(message string) Notification {
	return n.publish(SeveritySuccess, message)
}

func (n *Notifier) Error(message string) Notification {
	return n.publish(SeverityError, message)
}

func (n *Notifier) publish(sev Severity, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	note := Notification{
		ID:        n.seq,
		Severity:  sev,
		Message:   message,
		CreatedAt: n.now(),
	}
	n.current = &note

	for _, ch := range n.subs {
		select {
		case ch <- note:
		default:
		}
	}
	return note
}

// Current returns the live notification, dropping it once it has expired.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	if n.now().Sub(n.current.CreatedAt) >= n.ttl {
		n.current = nil
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss clears the notification with the given id. Zero clears whatever is
// showing. A stale id leaves a newer notification in place.
func (n *Notifier) Dismiss(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return false
	}
	if id != 0 && n.current.ID != id {
		return false
	}
	n.current = nil
	return true
}

// Subscribe registers a buffered feed of notifications. Slow subscribers miss
// notifications rather than block publishers.
func (n *Notifier) Subscribe(buffer int) (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Notification, buffer)
	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}
