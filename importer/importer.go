package importer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
)

// Store is the part of the record store the importer writes to.
type Store interface {
	InsertRecord(ctx context.Context, raw string) (int64, error)
	Batch(ctx context.Context, fn func() error) error
}

// Options tune an import run.
type Options struct {
	// BatchSize is the number of inserts committed per transaction.
	BatchSize int
}

// Result summarises an import run.
type Result struct {
	Files        int
	FilesFailed  int
	Parsed       int
	Inserted     int
	InsertFailed int
	LinesSkipped int
	// CommonFields are the keys present in every parsed object, in the key
	// order of the first one.
	CommonFields []string
}

const (
	heartbeatEvery = 100
	diagnosticLen  = 75
)

// Run imports paths in order; a directory stands for the supported files
// below it. It only returns an error when ctx is done;
// file, line and record failures are reported through rep and counted.
func Run(ctx context.Context, st Store, paths []string, rep *progress.Reporter, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	paths = expand(paths, rep)
	res := &Result{Files: len(paths)}
	var common Intersector
	total := len(paths)
	for fileIdx, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := filepath.Base(path)
		rep.Status("Processing file %d of %d: %s", fileIdx+1, total, name)
		entries, err := ParseFile(path)
		if err != nil && len(entries) == 0 {
			res.FilesFailed++
			rep.Warn(fmt.Sprintf("Error processing file %s: %v", path, err), "file", path, "error", err)
			rep.Progress(filePercent(fileIdx+1, 0, 1, total))
			continue
		}
		if err != nil {
			// a broken tail still lets the parsed head through
			rep.Warn(fmt.Sprintf("Error reading file %s: %v", path, err), "file", path, "error", err)
		}
		rep.Status("Parsed %d logs from file", len(entries))
		if err := importEntries(ctx, st, entries, fileIdx, total, rep, res, &common, opts.BatchSize); err != nil {
			return res, err
		}
		rep.Status("Committed changes for file %d", fileIdx+1)
	}
	res.CommonFields = common.Fields()
	if res.CommonFields == nil {
		res.CommonFields = []string{}
	}
	rep.Done("Import completed. Processed %d logs, inserted %d logs.", res.Parsed, res.Inserted)
	return res, nil
}

func importEntries(ctx context.Context, st Store, entries []Entry, fileIdx, total int, rep *progress.Reporter, res *Result, common *Intersector, batchSize int) error {
	n := len(entries)
	if n == 0 {
		rep.Progress(filePercent(fileIdx+1, 0, 1, total))
		return nil
	}
	for start := 0; start < n; start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, n)
		inserted := 0
		err := st.Batch(ctx, func() error {
			for i := start; i < end; i++ {
				e := entries[i]
				if e.Err != nil {
					res.LinesSkipped++
					rep.Warn(fmt.Sprintf("Error parsing line %d: %s", e.Line, errs.Truncate(e.Raw, diagnosticLen)), "line", e.Line, "error", e.Err)
				} else {
					res.Parsed++
					common.Add(e.Keys)
					if _, err := st.InsertRecord(ctx, e.Raw); err != nil {
						res.InsertFailed++
						rep.Warn(fmt.Sprintf("Error inserting log at line %d: %v", e.Line, err), "line", e.Line, "error", err)
					} else {
						inserted++
					}
				}
				if i%heartbeatEvery == 0 {
					rep.Status("Processed %d logs in current file", i+1)
				}
				rep.Progress(filePercent(fileIdx, i+1, n, total))
			}
			return nil
		})
		if err != nil {
			res.InsertFailed += inserted
			rep.Warn(fmt.Sprintf("Error committing batch: %v", err), "error", err)
			continue
		}
		res.Inserted += inserted
	}
	return nil
}

// filePercent is the overall percentage after done of n entries of file
// fileIdx out of total files.
func filePercent(fileIdx, done, n, total int) int {
	if total <= 0 || n <= 0 {
		return 100
	}
	return int((float64(fileIdx)*100 + float64(done)/float64(n)*100) / float64(total))
}
