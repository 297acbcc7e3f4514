package capture

import "sync"

// chunker accumulates raw sample bytes from the device callback and flushes
// them onto a bounded queue in fixed-size chunks. The callback thread only
// ever appends; the queue is drained by the recorder after Stop, so there is
// no concurrent reader while chunks are still being produced.
type chunker struct {
	mu       sync.Mutex
	pending  []byte
	chunkLen int
	queue    chan []byte
	closed   bool
	dropped  int
}

func newChunker(chunkLen, queueCapacity int) *chunker {
	return &chunker{
		chunkLen: chunkLen,
		queue:    make(chan []byte, queueCapacity),
	}
}

// push appends callback data and flushes every full chunk. When the queue is
// full the chunk is dropped rather than blocking the audio callback.
func (c *chunker) push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = append(c.pending, data...)
	for len(c.pending) >= c.chunkLen {
		chunk := make([]byte, c.chunkLen)
		copy(chunk, c.pending[:c.chunkLen])
		c.pending = c.pending[c.chunkLen:]
		c.enqueue(chunk)
	}
}

// finish flushes the partial trailing chunk and closes the queue. Safe to
// call once; the device must already be stopped so no push can race it.
func (c *chunker) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if len(c.pending) > 0 {
		c.enqueue(c.pending)
		c.pending = nil
	}
	close(c.queue)
}

func (c *chunker) enqueue(chunk []byte) {
	select {
	case c.queue <- chunk:
	default:
		c.dropped++
	}
}

func (c *chunker) droppedChunks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
