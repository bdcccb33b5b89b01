package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func openSession(t *testing.T) *store.Session {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	sess, err := s.Session(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func recorder() (*progress.Reporter, *[]progress.Event) {
	var events []progress.Event
	rep := progress.NewReporter(progress.Func(func(e progress.Event) { events = append(events, e) }), "import", nil)
	return rep, &events
}

func TestRun_JSONLinesCommonFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "logs.jsonl", `{"a":1,"b":"x"}
{"a":2,"b":"y"}
{"a":3,"b":"z","c":true}
`)
	sess := openSession(t)
	rep, events := recorder()

	res, err := Run(context.Background(), sess, []string{path}, rep, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, []string{"a", "b"}, res.CommonFields)

	records, err := sess.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `{"a":1,"b":"x"}`, records[0].RawData)
	assert.Equal(t, store.NoiseClusterID, records[0].ClusterID)

	last := (*events)[len(*events)-1]
	assert.Equal(t, progress.KindDone, last.Kind)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, "Import completed. Processed 3 logs, inserted 3 logs.", last.Message)
}

func TestRun_SkipsBadLinesAndUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	long := "not json " + strings.Repeat("x", 200)
	a := writeFile(t, dir, "a.log", "{\"b\":1,\"a\":2,\"z\":0}\n"+long+"\n\n[1,2]\n")
	bad := writeFile(t, dir, "b.csv", "a,b\n1,2\n")
	c := writeFile(t, dir, "c.txt", `{"a":5,"b":6,"d":1}`)
	sess := openSession(t)
	rep, events := recorder()

	res, err := Run(context.Background(), sess, []string{a, bad, c}, rep, Options{BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 2, res.Parsed)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.LinesSkipped)
	assert.Equal(t, []string{"b", "a"}, res.CommonFields)

	var diag string
	last := 0
	for _, e := range *events {
		assert.GreaterOrEqual(t, e.Percent, last)
		last = e.Percent
		if e.Kind == progress.KindWarning && strings.HasPrefix(e.Message, "Error parsing line 2: ") {
			diag = strings.TrimPrefix(e.Message, "Error parsing line 2: ")
		}
	}
	assert.Equal(t, long[:75]+"...", diag)
	assert.Equal(t, 100, last)
}

func TestRun_JSONArrayFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "logs.json", `[
  {"level": "info", "msg": "a"},
  {"level": "warn", "msg": "b", "code": 7}
]`)
	sess := openSession(t)
	res, err := Run(context.Background(), sess, []string{path}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, []string{"level", "msg"}, res.CommonFields)
}

type failingStore struct {
	inserts int
}

func (f *failingStore) InsertRecord(_ context.Context, _ string) (int64, error) {
	f.inserts++
	if f.inserts == 2 {
		return 0, errs.Storage("test", errors.New("disk full"))
	}
	return int64(f.inserts), nil
}

func (f *failingStore) Batch(_ context.Context, fn func() error) error { return fn() }

func TestRun_InsertFailureIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "logs.jsonl", "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n")
	st := &failingStore{}
	res, err := Run(context.Background(), st, []string{path}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.InsertFailed)
}

func TestRun_NoFiles(t *testing.T) {
	res, err := Run(context.Background(), &failingStore{}, nil, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.CommonFields)
}

func TestObjectKeys(t *testing.T) {
	keys, err := objectKeys([]byte(`{"z":1,"a":{"nested":[1,2]},"m":null,"z":2}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	for _, raw := range []string{`[1]`, `"s"`, `{"a":1} {"b":2}`, `{"a":`} {
		_, err := objectKeys([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestIntersector(t *testing.T) {
	var in Intersector
	assert.Nil(t, in.Fields())
	in.Add([]string{"a", "b", "c"})
	in.Add([]string{"c", "a"})
	assert.Equal(t, []string{"a", "c"}, in.Fields())
	in.Add(nil)
	assert.Equal(t, []string{}, in.Fields())
}

func TestCommonFieldsFromStore(t *testing.T) {
	sess := openSession(t)
	ctx := context.Background()
	for _, raw := range []string{`{"a":1,"b":"x"}`, `{"b":"y","a":2,"c":3}`} {
		_, err := sess.InsertRecord(ctx, raw)
		require.NoError(t, err)
	}
	fields, err := CommonFields(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fields)
}

func TestFilePercent(t *testing.T) {
	assert.Equal(t, 50, filePercent(0, 10, 10, 2))
	assert.Equal(t, 75, filePercent(1, 5, 10, 2))
	assert.Equal(t, 100, filePercent(1, 10, 10, 2))
}

func TestRun_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", "{\"a\":1,\"b\":\"x\"}\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, filepath.Join(dir, "sub"), "b.log", "{\"a\":2,\"c\":\"y\"}\n")
	writeFile(t, dir, "notes.md", "# not a log\n")
	empty := t.TempDir()

	sess := openSession(t)
	rep, events := recorder()
	res, err := Run(context.Background(), sess, []string{dir, empty}, rep, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Zero(t, res.FilesFailed)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, []string{"a"}, res.CommonFields)

	var messages []string
	for _, e := range *events {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Processing file 1 of 2: a.jsonl")
	assert.Contains(t, messages, "Processing file 2 of 2: b.log")
	assert.Contains(t, messages, "No suitable log files found in "+empty)
}
