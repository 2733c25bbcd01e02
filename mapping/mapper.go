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


package mapping

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/lakefeed/core"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lake record field names the content template draws from.
const (
	idField          = "_id"
	postingDateField = "PostingDate"
	descriptionField = "Description"
	amountField      = "Amount"
	typeField        = "Type"

	// missingMarker substitutes for absent template fields.
	missingMarker = "N/A"
)

// Metadata keys derived explicitly from the record.
const (
	metaSourceCollection = "source_collection"
	metaSourceDocumentId = "source_document_id"
	metaTransactionDate  = "transaction_date"
	metaAmount           = "amount"
	metaType             = "type"
)

// BuildUnit maps one raw lake record to a retrieval unit for the named
// collection. The record itself is never mutated; the identifier field is
// removed from a copy so it does not leak into retrieval text. A record whose
// identifier is absent gets a freshly generated random one, used for both the
// unit id and the source-id metadata field.
func BuildUnit(record core.RawRecord, collection string) (*core.RetrievalUnit, error) {
	source := record.Clone()
	sourceId := stringifyId(source[idField])
	delete(source, idField)

	if sourceId == "" {
		sourceId = randomHex()
		slog.Debug("record has no identifier, generated one", "collection", collection, "id", sourceId)
	}

	content, err := buildContent(source)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s record %s: %w", ErrMapping, collection, sourceId, err)
	}

	unit := &core.RetrievalUnit{
		Id:       sourceId,
		Content:  content,
		Metadata: buildMetadata(source, collection, sourceId),
	}

	if err := core.ValidateRetrievalUnit(unit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapping, err)
	}

	return unit, nil
}

// buildContent renders the record into a concise, readable text chunk. The
// template is a stable contract with the vector index: previously embedded
// content is only semantically comparable to new content rendered the same
// way.
func buildContent(source core.RawRecord) (string, error) {
	amount, err := formatAmount(source[amountField])
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"On %s, a transaction occurred with details: Description: %s. Amount: $%s. Type: %s.",
		fieldOrMarker(source, postingDateField),
		fieldOrMarker(source, descriptionField),
		amount,
		fieldOrMarker(source, typeField),
	), nil
}

// buildMetadata merges the explicit derived fields with all remaining raw
// fields. List and nested-mapping values are dropped with a warning, other
// non-scalar values are stringified, and nil values are omitted. Explicit
// keys are never overridden by raw fields.
func buildMetadata(source core.RawRecord, collection, sourceId string) map[string]any {
	metadata := map[string]any{
		metaSourceCollection: collection,
		metaSourceDocumentId: sourceId,
	}
	if v := source[postingDateField]; v != nil {
		metadata[metaTransactionDate] = coerceScalar(v)
	}
	if v := source[amountField]; v != nil {
		metadata[metaAmount] = coerceScalar(v)
	}
	if v := source[typeField]; v != nil {
		metadata[metaType] = coerceScalar(v)
	}

	for k, v := range source {
		if _, exists := metadata[k]; exists {
			continue
		}
		if v == nil {
			continue
		}
		if core.IsComposite(v) {
			slog.Warn("skipping composite metadata field", "field", k, "type", fmt.Sprintf("%T", v))
			continue
		}
		metadata[k] = coerceScalar(v)
	}

	return metadata
}

// formatAmount renders the amount field with two decimals. An absent amount
// defaults to 0.00; a non-numeric amount is a mapping failure.
func formatAmount(v any) (string, error) {
	switch amount := v.(type) {
	case nil:
		return "0.00", nil
	case float64:
		return fmt.Sprintf("%.2f", amount), nil
	case float32:
		return fmt.Sprintf("%.2f", amount), nil
	case int:
		return fmt.Sprintf("%.2f", float64(amount)), nil
	case int32:
		return fmt.Sprintf("%.2f", float64(amount)), nil
	case int64:
		return fmt.Sprintf("%.2f", float64(amount)), nil
	default:
		return "", fmt.Errorf("unformattable amount of type %T", v)
	}
}

// fieldOrMarker renders a template field, substituting the missing marker
// for absent or nil values.
func fieldOrMarker(source core.RawRecord, field string) string {
	v, ok := source[field]
	if !ok || v == nil {
		return missingMarker
	}
	return fmt.Sprintf("%v", v)
}

// coerceScalar passes scalar values through unchanged and stringifies
// anything else (timestamps, decimal types, and similar driver types).
func coerceScalar(v any) any {
	if core.IsScalar(v) {
		return v
	}
	return fmt.Sprintf("%v", v)
}

// stringifyId renders a lake record identifier as a string. ObjectIDs use
// their hex form so the id round-trips with what operators see in the lake.
func stringifyId(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprintf("%v", id)
	}
}

// randomHex returns a random identifier in hex form (no dashes).
func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
