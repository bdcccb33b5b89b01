package progress

import "sync"

// Sink receives events. Implementations must not block the caller.
type Sink interface {
	Publish(Event)
}

// Channel is an unbounded FIFO Sink. Events published after Close are dropped.
type Channel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	out    chan Event
}

func NewChannel() *Channel {
	c := &Channel{out: make(chan Event)}
	c.cond = sync.NewCond(&c.mu)
	go c.pump()
	return c
}

func (c *Channel) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.queue = append(c.queue, e)
	c.cond.Signal()
}

// Events is closed once Close was called and every queued event delivered.
func (c *Channel) Events() <-chan Event { return c.out }

func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *Channel) pump() {
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			close(c.out)
			return
		}
		e := c.queue[0]
		c.queue[0] = Event{}
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.out <- e
	}
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Func adapts a function to Sink. The function must return promptly.
type Func func(Event)

func (f Func) Publish(e Event) { f(e) }
