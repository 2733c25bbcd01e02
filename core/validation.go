// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"reflect"
)

// ErrInvalidRetrievalUnit indicates a RetrievalUnit failed validation.
var ErrInvalidRetrievalUnit = fmt.Errorf("invalid retrieval unit")

// ValidateRetrievalUnit validates a RetrievalUnit according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Content must not be empty
//
// NOT validated:
//   - Metadata values (the mapper guarantees scalar-only metadata; the index
//     re-checks nothing)
func ValidateRetrievalUnit(unit *RetrievalUnit) error {
	if unit == nil {
		return fmt.Errorf("%w: unit is nil", ErrInvalidRetrievalUnit)
	}

	if unit.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRetrievalUnit, ErrEmptyId)
	}

	if unit.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRetrievalUnit, ErrEmptyContent)
	}

	return nil
}

// IsScalar reports whether a metadata value is one of the scalar types the
// index accepts. Lists and nested mappings are not scalars; neither is nil.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case nil:
		return false
	}
	return false
}

// IsComposite reports whether a value is a list or nested mapping. The mapper
// drops such values from metadata rather than serializing them.
func IsComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}
