package impression

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fedsearch/fedsearch/pkg/log"
)

// Firehose fans impression records out to websocket listeners. Fan-out is
// best-effort: each listener gets its own buffered channel, and a full buffer
// drops records for that listener only, so one slow consumer never
// backpressures the search path.
type Firehose struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Record
	nextID    uint64
	bufSize   int
	upgrader  websocket.Upgrader
	logger    *log.Logger
}

// NewFirehose builds a hub with the given per-listener buffer size; values
// <= 0 use a default of 32.
func NewFirehose(bufSize int) *Firehose {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Firehose{
		listeners: make(map[uint64]chan Record),
		bufSize:   bufSize,
		upgrader: websocket.Upgrader{
			// The API already serves permissive CORS; the firehose is
			// an operator stream, not a credentialed endpoint.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.ForService("firehose"),
	}
}

// Broadcast delivers rec to every listener that has buffer room.
func (f *Firehose) Broadcast(rec Record) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.listeners {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (f *Firehose) subscribe() (uint64, chan Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	ch := make(chan Record, f.bufSize)
	f.listeners[id] = ch
	return id, ch
}

func (f *Firehose) unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.listeners[id]; ok {
		delete(f.listeners, id)
		close(ch)
	}
}

// ListenerCount returns the current number of connected listeners.
func (f *Firehose) ListenerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// ServeHTTP upgrades the request to a websocket and streams impression
// records until the client disconnects.
func (f *Firehose) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debugf("upgrade failed: %v", err)
		return
	}

	id, ch := f.subscribe()
	f.logger.Debugf("listener %d connected", id)

	// Drain the read side so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.unsubscribe(id)
				return
			}
		}
	}()

	go func() {
		defer func() {
			f.unsubscribe(id)
			if err := conn.Close(); err != nil {
				f.logger.Debugf("closing listener %d: %v", id, err)
			}
		}()
		for rec := range ch {
			if err := conn.WriteJSON(rec); err != nil {
				f.logger.Debugf("listener %d write failed: %v", id, err)
				return
			}
		}
	}()
}
