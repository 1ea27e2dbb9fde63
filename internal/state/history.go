package state

// HistoryCapacity is the number of most recent values retained.
const HistoryCapacity = 120

// History is a bounded FIFO of values, oldest first. Not safe for concurrent use;
// the Store guards it.
type History struct {
	buf   []float64
	start int
	size  int
}

// NewHistory creates a History with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{buf: make([]float64, capacity)}
}

// Append adds v, evicting the oldest value when full.
func (h *History) Append(v float64) {
	c := len(h.buf)
	if h.size < c {
		h.buf[(h.start+h.size)%c] = v
		h.size++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % c
}

// Len returns the number of stored values.
func (h *History) Len() int { return h.size }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Values returns a copy of the stored values, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
