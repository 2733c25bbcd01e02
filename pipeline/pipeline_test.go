package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/datalake"
	"github.com/poiesic/lakefeed/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder implements ai.Embedder for testing
type testEmbedder struct {
	calls       int
	texts       []string
	shouldError bool
	// vectorCount overrides the number of vectors returned when non-zero,
	// to exercise the length parity check.
	vectorCount int
}

func (m *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.texts = append(m.texts, texts...)
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	count := len(texts)
	if m.vectorCount > 0 {
		count = m.vectorCount
	}
	result := make([][]float32, count)
	for i := range result {
		result[i] = []float32{float32(i) * 0.1, float32(i) * 0.2}
	}
	return result, nil
}

// testIndex implements vectorstore.Index for testing
type testIndex struct {
	upserts     [][]*core.RetrievalUnit
	shouldError bool
}

func (m *testIndex) Upsert(ctx context.Context, units []*core.RetrievalUnit, vectors [][]float32) error {
	if m.shouldError {
		return errors.New("index error")
	}
	upserted := make([]*core.RetrievalUnit, len(units))
	copy(upserted, units)
	m.upserts = append(m.upserts, upserted)
	return nil
}

func (m *testIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (m *testIndex) Close() error {
	return nil
}

// testCursor implements datalake.Cursor over a fixed record slice.
type testCursor struct {
	records []core.RawRecord
	pos     int
	closed  bool

	// errAfter makes Next stop and Err report a failure once pos reaches
	// the given index. Zero value means no error.
	errAfter int
	iterErr  error

	decodeErr error
}

func (c *testCursor) Next(ctx context.Context) bool {
	if c.iterErr != nil && c.pos >= c.errAfter {
		return false
	}
	if c.pos >= len(c.records) {
		return false
	}
	c.pos++
	return true
}

func (c *testCursor) Decode(record *core.RawRecord) error {
	if c.decodeErr != nil {
		return c.decodeErr
	}
	*record = c.records[c.pos-1]
	return nil
}

func (c *testCursor) Err() error {
	if c.iterErr != nil && c.pos >= c.errAfter {
		return c.iterErr
	}
	return nil
}

func (c *testCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func makeRecords(n int) []core.RawRecord {
	records := make([]core.RawRecord, n)
	for i := range records {
		records[i] = core.RawRecord{
			"_id":         recordId(i),
			"PostingDate": "01/31/2023",
			"Description": "PURCHASE",
			"Amount":      float64(i) + 0.5,
			"Type":        "DEBIT",
		}
	}
	return records
}

func recordId(i int) string {
	return string(rune('a' + i))
}

func TestBatchAddAllOrNothing(t *testing.T) {
	b := NewBatch(5)

	units := []*core.RetrievalUnit{
		{Id: "1", Content: "one"},
		{Id: "2", Content: "two"},
		{Id: "3", Content: "three"},
	}
	require.NoError(t, b.Add(units...))
	assert.Equal(t, 3, b.Len())

	// 3 buffered + 2 new reaches capacity 5, nothing is buffered
	err := b.Add(&core.RetrievalUnit{Id: "4", Content: "four"}, &core.RetrievalUnit{Id: "5", Content: "five"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, b.Len())

	// a single unit still fits below the ceiling
	require.NoError(t, b.Add(&core.RetrievalUnit{Id: "4", Content: "four"}))
	assert.Equal(t, 4, b.Len())
}

func TestBatchFlushEmptyIsNoOp(t *testing.T) {
	b := NewBatch(10)
	embedder := &testEmbedder{}
	index := &testIndex{}

	flushed, err := b.Flush(context.Background(), embedder, index)
	require.NoError(t, err)
	assert.Equal(t, 0, flushed)
	assert.Equal(t, 0, embedder.calls)
	assert.Empty(t, index.upserts)
}

func TestBatchFlushClearsUnits(t *testing.T) {
	b := NewBatch(10)
	require.NoError(t, b.Add(
		&core.RetrievalUnit{Id: "1", Content: "one"},
		&core.RetrievalUnit{Id: "2", Content: "two"},
	))

	embedder := &testEmbedder{}
	index := &testIndex{}

	flushed, err := b.Flush(context.Background(), embedder, index)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, []string{"one", "two"}, embedder.texts)
	require.Len(t, index.upserts, 1)
	assert.Len(t, index.upserts[0], 2)
}

func TestBatchFlushVectorParity(t *testing.T) {
	b := NewBatch(10)
	require.NoError(t, b.Add(
		&core.RetrievalUnit{Id: "1", Content: "one"},
		&core.RetrievalUnit{Id: "2", Content: "two"},
	))

	embedder := &testEmbedder{vectorCount: 1}
	index := &testIndex{}

	_, err := b.Flush(context.Background(), embedder, index)
	assert.Error(t, err)
	assert.Empty(t, index.upserts)
}

func TestBatchRunIdsDiffer(t *testing.T) {
	a := NewBatch(10)
	b := NewBatch(10)
	assert.NotEmpty(t, a.RunId())
	assert.NotEqual(t, a.RunId(), b.RunId())
}

func TestProcessorPartialFailureIsolation(t *testing.T) {
	records := makeRecords(10)
	records[5]["Amount"] = "not a number" // unmappable

	cur := &testCursor{records: records}
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)

	units, skipped, err := p.Process(context.Background(), "transactions", cur)
	require.NoError(t, err)

	assert.Equal(t, 9, units)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, embedder.calls)
	require.Len(t, index.upserts, 1)
	assert.Len(t, index.upserts[0], 9)
	assert.True(t, cur.closed)
}

func TestProcessorEmptyCollection(t *testing.T) {
	cur := &testCursor{}
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)

	units, skipped, err := p.Process(context.Background(), "transactions", cur)
	require.NoError(t, err)

	assert.Equal(t, 0, units)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 0, embedder.calls)
	assert.Empty(t, index.upserts)
	assert.True(t, cur.closed)
}

func TestProcessorCapacityExceededPropagates(t *testing.T) {
	cur := &testCursor{records: makeRecords(5)}
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 3)
	require.NoError(t, err)

	_, _, err = p.Process(context.Background(), "transactions", cur)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 0, embedder.calls, "an over-capacity collection must not be flushed")
	assert.True(t, cur.closed)
}

func TestProcessorCursorErrorPropagates(t *testing.T) {
	iterErr := errors.New("connection reset")
	cur := &testCursor{records: makeRecords(5), errAfter: 3, iterErr: iterErr}
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)

	_, _, err = p.Process(context.Background(), "transactions", cur)
	assert.ErrorIs(t, err, iterErr)
	assert.Equal(t, 0, embedder.calls)
	assert.True(t, cur.closed)
}

func TestProcessorDecodeErrorWrapsDatalake(t *testing.T) {
	cur := &testCursor{records: makeRecords(2), decodeErr: errors.New("bad document")}
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)

	_, _, err = p.Process(context.Background(), "transactions", cur)
	assert.ErrorIs(t, err, datalake.ErrDatalake)
	assert.True(t, cur.closed)
}

func TestProcessorFlushErrorPropagates(t *testing.T) {
	cur := &testCursor{records: makeRecords(2)}
	embedder := &testEmbedder{shouldError: true}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)

	units, _, err := p.Process(context.Background(), "transactions", cur)
	assert.Error(t, err)
	assert.Equal(t, 0, units)
	assert.True(t, cur.closed)
}

func TestProcessorBatchNumberIncrements(t *testing.T) {
	embedder := &testEmbedder{}
	index := &testIndex{}

	p, err := NewProcessor(embedder, index, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.BatchNumber())

	_, _, err = p.Process(context.Background(), "a", &testCursor{})
	require.NoError(t, err)
	_, _, err = p.Process(context.Background(), "b", &testCursor{})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), p.BatchNumber())
}

func TestNewProcessorValidation(t *testing.T) {
	_, err := NewProcessor(nil, &testIndex{}, 0)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewProcessor(&testEmbedder{}, nil, 0)
	assert.ErrorIs(t, err, ErrIndexRequired)
}
