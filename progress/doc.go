// Package progress carries stage notifications from workers to whoever
// orchestrates them. Publishing never blocks: events are queued in FIFO
// order and drained by a pump goroutine into a receive-only channel.
package progress
