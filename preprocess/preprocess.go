package preprocess

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
)

// ErrOverwriteNotConfirmed is returned when records already carry text and
// the caller did not agree to replace it.
var ErrOverwriteNotConfirmed = errors.New("preprocess: existing text would be overwritten")

// Store is the part of the record store the preprocessor needs.
type Store interface {
	Records(ctx context.Context) ([]store.Record, error)
	HasPreprocessedText(ctx context.Context) (bool, error)
	UpdatePreprocessedText(ctx context.Context, id int64, text string) error
	Batch(ctx context.Context, fn func() error) error
}

type Options struct {
	Fields []string
	// ConfirmOverwrite allows replacing text written by an earlier run.
	ConfirmOverwrite bool
	// BatchSize is the number of updates committed per transaction.
	BatchSize int
}

type Result struct {
	Total     int
	Updated   int
	Unchanged int
}

// Run rewrites preprocessed_text for every record. It fails before touching
// the store when no field is selected or when an overwrite is not confirmed.
func Run(ctx context.Context, st Store, rep *progress.Reporter, opts Options) (*Result, error) {
	if len(opts.Fields) == 0 {
		return nil, errs.NoFieldsSelected("preprocess.Run")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if !opts.ConfirmOverwrite {
		has, err := st.HasPreprocessedText(ctx)
		if err != nil {
			return nil, err
		}
		if has {
			return nil, ErrOverwriteNotConfirmed
		}
	}
	records, err := st.Records(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Total: len(records)}
	if res.Total == 0 {
		rep.Done("No logs to preprocess")
		return res, nil
	}
	for start := 0; start < len(records); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(records))
		updated := 0
		err := st.Batch(ctx, func() error {
			for i := start; i < end; i++ {
				if apply(ctx, st, rep, records[i], opts.Fields) {
					updated++
				}
				rep.Progress(progress.Scale(0, 100, i+1, res.Total))
				rep.Status("Preprocessed %d/%d logs", i+1, res.Total)
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("preprocess: commit batch at %d: %w", start, err)
		}
		res.Updated += updated
	}
	res.Unchanged = res.Total - res.Updated
	rep.Done("Preprocessing completed. Updated %d of %d logs.", res.Updated, res.Total)
	return res, nil
}

func apply(ctx context.Context, st Store, rep *progress.Reporter, r store.Record, fields []string) bool {
	text, err := Compose(r.RawData, fields)
	if err != nil {
		rep.Warn(fmt.Sprintf("Error parsing log %d: %v", r.ID, err), "id", r.ID, "error", err)
		return false
	}
	if text == "" {
		return false
	}
	if err := st.UpdatePreprocessedText(ctx, r.ID, text); err != nil {
		rep.Warn(fmt.Sprintf("Error updating log %d: %v", r.ID, err), "id", r.ID, "error", err)
		return false
	}
	return true
}
