package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRetrievalUnit(t *testing.T) {
	tests := []struct {
		name    string
		unit    *RetrievalUnit
		wantErr bool
	}{
		{
			name: "valid unit",
			unit: &RetrievalUnit{
				Id:      "abc123",
				Content: "On 01/31/2023, a transaction occurred",
				Metadata: map[string]any{
					"source_collection": "txn-2023-01",
				},
			},
			wantErr: false,
		},
		{
			name:    "nil unit",
			unit:    nil,
			wantErr: true,
		},
		{
			name:    "empty id",
			unit:    &RetrievalUnit{Content: "some content"},
			wantErr: true,
		},
		{
			name:    "empty content",
			unit:    &RetrievalUnit{Id: "abc123"},
			wantErr: true,
		},
		{
			name:    "nil metadata is allowed",
			unit:    &RetrievalUnit{Id: "abc123", Content: "some content"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRetrievalUnit(tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRetrievalUnit)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar("text"))
	assert.True(t, IsScalar(true))
	assert.True(t, IsScalar(42))
	assert.True(t, IsScalar(int32(42)))
	assert.True(t, IsScalar(int64(42)))
	assert.True(t, IsScalar(uint8(42)))
	assert.True(t, IsScalar(float32(1.5)))
	assert.True(t, IsScalar(3.14))

	assert.False(t, IsScalar(nil))
	assert.False(t, IsScalar([]string{"a"}))
	assert.False(t, IsScalar(map[string]any{"k": "v"}))
	assert.False(t, IsScalar(struct{ X int }{1}))
}

func TestIsComposite(t *testing.T) {
	assert.True(t, IsComposite([]int{1, 2}))
	assert.True(t, IsComposite([2]string{"a", "b"}))
	assert.True(t, IsComposite(map[string]int{"a": 1}))

	assert.False(t, IsComposite(nil))
	assert.False(t, IsComposite("text"))
	assert.False(t, IsComposite(42))
	assert.False(t, IsComposite(struct{ X int }{1}))
}

func TestRawRecordClone(t *testing.T) {
	original := RawRecord{"_id": "a", "Amount": 12.5}
	clone := original.Clone()

	delete(clone, "_id")
	clone["Amount"] = 99.9

	assert.Equal(t, "a", original["_id"])
	assert.Equal(t, 12.5, original["Amount"])
	assert.Len(t, clone, 1)
}
