package importer

import (
	"context"

	"github.com/viant/crystalize/store"
)

// RecordSource lists stored records.
type RecordSource interface {
	Records(ctx context.Context) ([]store.Record, error)
}

// CommonFields recomputes the ordered key intersection from stored payloads,
// e.g. after reopening a database imported earlier.
func CommonFields(ctx context.Context, src RecordSource) ([]string, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}
	var in Intersector
	for _, r := range records {
		keys, err := objectKeys([]byte(r.RawData))
		if err != nil {
			continue
		}
		in.Add(keys)
	}
	fields := in.Fields()
	if fields == nil {
		fields = []string{}
	}
	return fields, nil
}
