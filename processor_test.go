package subsample_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subsample "github.com/tphakala/subsample-feats"
	"github.com/tphakala/subsample-feats/internal/testutil"
)

type runFixture struct {
	source *testutil.MemorySource
	lookup *testutil.MemoryLookup
	sink   *testutil.MemorySink
	hook   *test.Hook
}

func runProcessor(t *testing.T, offset int, values map[string]int32, utts ...testutil.Utterance) (*runFixture, subsample.Stats, error) {
	t.Helper()

	r, err := subsample.NewFrameResampler(offset)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &runFixture{
		source: testutil.NewMemorySource(utts...),
		lookup: &testutil.MemoryLookup{Values: values},
		sink:   &testutil.MemorySink{},
		hook:   hook,
	}
	p := subsample.NewProcessor(f.source, f.lookup, f.sink, r,
		subsample.WithLogger(logrus.NewEntry(logger)))
	stats, err := p.Run()
	return f, stats, err
}

func warnings(hook *test.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

func TestProcessor_ExampleDecimate(t *testing.T) {
	f, stats, err := runProcessor(t, 0, map[string]int32{"u1": 2},
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)})
	require.NoError(t, err)

	require.Equal(t, []string{"u1"}, f.sink.Keys)
	want := testutil.MustMatrix(t, [][]float32{{1, 1}, {3, 3}, {5, 5}})
	testutil.AssertMatrixEqual(t, want, f.sink.Get("u1"))

	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(0), stats.Errors)
	assert.Equal(t, int64(5), stats.FramesIn)
	assert.Equal(t, int64(3), stats.FramesOut)
	assert.True(t, stats.Succeeded())
}

func TestProcessor_ExampleRepeat(t *testing.T) {
	f, stats, err := runProcessor(t, 4, map[string]int32{"u1": -3},
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)})
	require.NoError(t, err)

	out := f.sink.Get("u1")
	require.NotNil(t, out)
	assert.Equal(t, 15, out.NumRows())
	assert.Equal(t, []float32{1, 1}, out.Row(2))
	assert.Equal(t, []float32{2, 2}, out.Row(3))
	assert.Equal(t, []float32{5, 5}, out.Row(14))

	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(15), stats.FramesOut)
}

func TestProcessor_ExampleLargeStep(t *testing.T) {
	f, stats, err := runProcessor(t, 0, map[string]int32{"u1": 10},
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)})
	require.NoError(t, err)

	testutil.AssertMatrixEqual(t, testutil.MustMatrix(t, [][]float32{{1, 1}}), f.sink.Get("u1"))
	assert.True(t, stats.Succeeded())
	assert.Equal(t, int64(1), stats.FramesOut)
}

func TestProcessor_OffsetPastEndOnlyUtteranceFails(t *testing.T) {
	f, stats, err := runProcessor(t, 10, map[string]int32{"u1": 10},
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)})
	require.NoError(t, err)

	assert.Empty(t, f.sink.Keys)
	assert.Equal(t, int64(0), stats.Done)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(5), stats.FramesIn)
	assert.Equal(t, int64(0), stats.FramesOut)
	assert.False(t, stats.Succeeded())

	warns := warnings(f.hook)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "u1")
	assert.Equal(t, "u1", warns[0].Data["utterance"])
}

func TestProcessor_ZeroRowsAsymmetry(t *testing.T) {
	f, stats, err := runProcessor(t, 10,
		map[string]int32{"dec": 2, "rep": 0},
		testutil.Utterance{Key: "dec", Feats: exampleMatrix(t)},
		testutil.Utterance{Key: "rep", Feats: exampleMatrix(t)},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"rep"}, f.sink.Keys)
	assert.Equal(t, 0, f.sink.Get("rep").NumRows())
	assert.Equal(t, 2, f.sink.Get("rep").NumCols())

	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(10), stats.FramesIn)
	assert.Equal(t, int64(0), stats.FramesOut)
	assert.True(t, stats.Succeeded())
}

func TestProcessor_FrameCounting(t *testing.T) {
	utts := []testutil.Utterance{
		{Key: "a", Feats: testutil.RampMatrix(7, 3)},
		{Key: "b", Feats: testutil.RampMatrix(2, 3)},
		{Key: "c", Feats: testutil.RampMatrix(4, 3)},
		{Key: "d", Feats: testutil.RampMatrix(0, 3)},
	}
	values := map[string]int32{"a": 3, "b": 5, "c": -2, "d": 1}

	f, stats, err := runProcessor(t, 2, values, utts...)
	require.NoError(t, err)

	// a: rows 2 and 5; b: offset past end; c: 8 rows; d: empty, skipped.
	assert.Equal(t, []string{"a", "c"}, f.sink.Keys)
	assert.Equal(t, int64(2), stats.Done)
	assert.Equal(t, int64(2), stats.Errors)
	assert.Equal(t, int64(7+2+4+0), stats.FramesIn)
	assert.Equal(t, int64(2+8), stats.FramesOut)
	assert.Equal(t, int64(4), stats.Utterances())

	assert.Equal(t, []float32{3, 3, 3}, f.sink.Get("a").Row(0))
	assert.Equal(t, []float32{6, 6, 6}, f.sink.Get("a").Row(1))
}

func TestProcessor_PreservesSourceOrder(t *testing.T) {
	keys := []string{"z", "a", "m", "b"}
	utts := make([]testutil.Utterance, 0, len(keys))
	values := map[string]int32{}
	for _, k := range keys {
		utts = append(utts, testutil.Utterance{Key: k, Feats: testutil.RampMatrix(3, 1)})
		values[k] = 1
	}

	f, _, err := runProcessor(t, 0, values, utts...)
	require.NoError(t, err)
	assert.Equal(t, keys, f.sink.Keys)
	assert.Equal(t, keys, f.lookup.Queried)
}

func TestProcessor_MissingKeyAbortsRun(t *testing.T) {
	f, stats, err := runProcessor(t, 0,
		map[string]int32{"u1": 1, "u3": 1},
		testutil.Utterance{Key: "u1", Feats: testutil.RampMatrix(3, 2)},
		testutil.Utterance{Key: "u2", Feats: testutil.RampMatrix(4, 2)},
		testutil.Utterance{Key: "u3", Feats: testutil.RampMatrix(5, 2)},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, subsample.ErrKeyNotFound)
	assert.Contains(t, err.Error(), "u2")

	assert.Equal(t, []string{"u1"}, f.sink.Keys)
	assert.Equal(t, []string{"u1", "u2"}, f.lookup.Queried)
	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(3), stats.FramesIn)

	for _, e := range f.hook.AllEntries() {
		assert.NotContains(t, e.Message, "feature matrices", "summary must not be logged on abort")
	}
}

func TestProcessor_EmptySourceFails(t *testing.T) {
	f, stats, err := runProcessor(t, 0, map[string]int32{})
	require.NoError(t, err)
	assert.False(t, stats.Succeeded())
	assert.Empty(t, f.sink.Keys)

	var infos []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			infos = append(infos, e.Message)
		}
	}
	assert.Equal(t, []string{
		"Processed 0 feature matrices; 0 with errors.",
		"Processed 0 input frames and 0 output frames.",
	}, infos)
}

func TestProcessor_SummaryLines(t *testing.T) {
	f, _, err := runProcessor(t, 0, map[string]int32{"u1": 2, "u2": -1},
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)},
		testutil.Utterance{Key: "u2", Feats: exampleMatrix(t)},
	)
	require.NoError(t, err)

	var messages []string
	for _, e := range f.hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Processed 2 feature matrices; 0 with errors.")
	assert.Contains(t, messages, "Processed 10 input frames and 8 output frames.")
}

func TestProcessor_SourceErrorAborts(t *testing.T) {
	r, err := subsample.NewFrameResampler(0)
	require.NoError(t, err)

	readErr := errors.New("truncated archive")
	source := testutil.NewMemorySource(
		testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)},
		testutil.Utterance{Key: "u2", Feats: exampleMatrix(t)},
	)
	source.FailAfter = 1
	source.ReadErr = readErr
	sink := &testutil.MemorySink{}

	p := subsample.NewProcessor(source, &testutil.MemoryLookup{Values: map[string]int32{"u1": 1, "u2": 1}}, sink, r)
	stats, err := p.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, []string{"u1"}, sink.Keys)
}

func TestProcessor_SinkErrorAborts(t *testing.T) {
	r, err := subsample.NewFrameResampler(0)
	require.NoError(t, err)

	writeErr := errors.New("disk full")
	sink := &testutil.MemorySink{WriteErr: writeErr}
	source := testutil.NewMemorySource(testutil.Utterance{Key: "u1", Feats: exampleMatrix(t)})

	p := subsample.NewProcessor(source, &testutil.MemoryLookup{Values: map[string]int32{"u1": 1}}, sink, r)
	stats, err := p.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, int64(0), stats.Done)
}

func TestProcessor_RatioSummary(t *testing.T) {
	_, stats, err := runProcessor(t, 0, map[string]int32{"a": 2, "b": -2},
		testutil.Utterance{Key: "a", Feats: testutil.RampMatrix(4, 1)},
		testutil.Utterance{Key: "b", Feats: testutil.RampMatrix(4, 1)},
	)
	require.NoError(t, err)

	mean, stdDev := stats.RatioSummary()
	assert.InDelta(t, 1.25, mean, 1e-12)
	assert.Greater(t, stdDev, 0.0)
}
