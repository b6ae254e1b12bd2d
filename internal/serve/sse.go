package serve

import (
	"fmt"
	"net/http"
	"sync"
)

// broker fans reload events out to every connected /dev/events client.
type broker struct {
	mu     sync.Mutex
	conns  map[chan string]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{conns: make(map[chan string]struct{})}
}

func (b *broker) subscribe() chan string {
	ch := make(chan string, 8)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.conns[ch] = struct{}{}
	return ch
}

func (b *broker) unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conns[ch]; ok {
		delete(b.conns, ch)
		close(ch)
	}
}

// broadcast drops the event for clients whose buffer is full.
func (b *broker) broadcast(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.conns {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *broker) clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Close ends every open stream; later subscribers get a closed channel.
func (b *broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.conns {
		delete(b.conns, ch)
		close(ch)
	}
	b.closed = true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	fmt.Fprintf(w, "event: hello\ndata: %s\n\n", s.holder.State())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %d\n\n", ev, s.holder.Current().Len())
			flusher.Flush()
		}
	}
}
