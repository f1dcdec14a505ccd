package capture

import "netwarden/internal/models"

// History is a fixed-capacity ring buffer of packet events. When full, a
// push overwrites the oldest entry. Not safe for concurrent use; the
// pipeline serializes access under its own mutex.
type History struct {
	buf  []models.PacketEvent
	head int // index of the oldest entry
	size int
}

// NewHistory creates a history buffer holding at most capacity events.
func NewHistory(capacity int) *History {
	return &History{buf: make([]models.PacketEvent, capacity)}
}

// Push appends an event, evicting the oldest when the buffer is full.
func (h *History) Push(e models.PacketEvent) {
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = e
		h.size++
		return
	}
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
}

// Len reports the number of stored events.
func (h *History) Len() int {
	return h.size
}

// Snapshot returns the most recent limit events in chronological order,
// oldest of the selected window first.
func (h *History) Snapshot(limit int) []models.PacketEvent {
	if limit > h.size {
		limit = h.size
	}
	if limit <= 0 {
		return []models.PacketEvent{}
	}

	out := make([]models.PacketEvent, limit)
	start := h.size - limit
	for i := 0; i < limit; i++ {
		out[i] = h.buf[(h.head+start+i)%len(h.buf)]
	}
	return out
}

// Clear empties the buffer.
func (h *History) Clear() {
	h.head = 0
	h.size = 0
}
