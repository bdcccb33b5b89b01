package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viant/crystalize/logging"
)

// Reporter publishes the notifications of one stage run. Percentages are
// clamped to [0,100] and never go backwards. A nil *Reporter is valid and
// does nothing.
type Reporter struct {
	sink  Sink
	log   *logging.Logger
	runID uuid.UUID
	stage string

	mu   sync.Mutex
	last int
	now  func() time.Time
}

// NewReporter starts a run of stage with a fresh run id.
func NewReporter(sink Sink, stage string, log *logging.Logger) *Reporter {
	if sink == nil {
		sink = Discard
	}
	runID := uuid.New()
	return &Reporter{
		sink:  sink,
		log:   logging.OrNop(log).With("stage", stage, "run_id", runID.String()),
		runID: runID,
		stage: stage,
		now:   time.Now,
	}
}

func (r *Reporter) RunID() uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	return r.runID
}

func (r *Reporter) Stage() string {
	if r == nil {
		return ""
	}
	return r.stage
}

// Logger returns the run-scoped logger.
func (r *Reporter) Logger() *logging.Logger {
	if r == nil {
		return logging.Nop()
	}
	return r.log
}

// Percent returns the last published percentage.
func (r *Reporter) Percent() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Progress publishes pct, or the previous value if pct would move backwards.
func (r *Reporter) Progress(pct int) {
	if r == nil {
		return
	}
	r.publish(KindProgress, pct, "", nil)
}

// Status publishes a human-readable message at the current percentage.
func (r *Reporter) Status(format string, args ...any) {
	if r == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	r.publish(KindStatus, -1, msg, nil)
}

// Warn reports a recovered error with context for the log.
func (r *Reporter) Warn(msg string, keysAndValues ...any) {
	if r == nil {
		return
	}
	r.log.Warn(msg, keysAndValues...)
	r.publish(KindWarning, -1, msg, nil)
}

// Done ends the run successfully at 100%.
func (r *Reporter) Done(format string, args ...any) {
	if r == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	r.publish(KindDone, 100, msg, nil)
}

// Fail ends the run with err. The percentage stays where it was.
func (r *Reporter) Fail(err error) {
	if r == nil {
		return
	}
	r.log.Error("stage failed", "error", err)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.publish(KindFailed, -1, msg, err)
}

// publish with pct < 0 keeps the last percentage.
func (r *Reporter) publish(kind Kind, pct int, msg string, err error) {
	r.mu.Lock()
	pct = r.clamp(pct)
	e := Event{RunID: r.runID, Stage: r.stage, Kind: kind, Percent: pct, Message: msg, Err: err, Time: r.now()}
	// publishing under the lock keeps sink order equal to percentage order
	r.sink.Publish(e)
	r.mu.Unlock()
}

func (r *Reporter) clamp(pct int) int {
	if pct < 0 {
		return r.last
	}
	if pct > 100 {
		pct = 100
	}
	if pct < r.last {
		return r.last
	}
	r.last = pct
	return pct
}

// Scale maps done/total into the [from,to] band.
func Scale(from, to, done, total int) int {
	if total <= 0 {
		return to
	}
	if done > total {
		done = total
	}
	return from + (to-from)*done/total
}
