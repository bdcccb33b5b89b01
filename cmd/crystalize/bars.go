package main

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/viant/crystalize/progress"
)

// bars renders one progress bar per stage run.
type bars struct {
	p    *mpb.Progress
	runs map[uuid.UUID]*run
}

type run struct {
	bar *mpb.Bar
	mu  sync.Mutex
	msg string
}

func (r *run) message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msg
}

func (r *run) setMessage(m string) {
	r.mu.Lock()
	r.msg = m
	r.mu.Unlock()
}

func newBars(w io.Writer) *bars {
	return &bars{
		p:    mpb.New(mpb.WithWidth(40), mpb.WithOutput(w)),
		runs: map[uuid.UUID]*run{},
	}
}

func (b *bars) consume(events <-chan progress.Event) {
	for e := range events {
		r := b.runs[e.RunID]
		if r == nil {
			r = b.add(e.Stage)
			b.runs[e.RunID] = r
		}
		if e.Message != "" {
			r.setMessage(e.Message)
		}
		switch e.Kind {
		case progress.KindFailed:
			r.bar.Abort(false)
		case progress.KindDone:
			r.bar.SetCurrent(100)
		default:
			r.bar.SetCurrent(int64(e.Percent))
		}
	}
}

func (b *bars) add(stage string) *run {
	r := &run{}
	r.bar = b.p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(stage+": ", decor.WCSyncSpaceR),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string { return r.message() }),
		),
	)
	return r
}

func (b *bars) wait() { b.p.Wait() }
