package qdrant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPointIdIsDeterministic(t *testing.T) {
	a := PointId("65b1f0c2a4d3e8f901234567")
	b := PointId("65b1f0c2a4d3e8f901234567")
	c := PointId("65b1f0c2a4d3e8f901234568")

	assert.Equal(t, a, b, "the same unit id must map to the same point")
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestPayloadValueWidening(t *testing.T) {
	assert.Equal(t, int64(7), payloadValue(int32(7)))
	assert.Equal(t, int64(7), payloadValue(uint16(7)))
	assert.Equal(t, int64(7), payloadValue(uint64(7)))
	assert.Equal(t, float64(1.5), payloadValue(float32(1.5)))

	// already-accepted types pass through unchanged
	assert.Equal(t, "x", payloadValue("x"))
	assert.Equal(t, true, payloadValue(true))
	assert.Equal(t, 42, payloadValue(42))
	assert.Equal(t, 3.14, payloadValue(3.14))
}
