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


package datalake

import (
	"context"

	"github.com/poiesic/lakefeed/core"
)

// Lake is the data-lake collaborator.
type Lake interface {
	// WithSession executes fn within one lake-level transaction. The
	// transaction commits if fn returns nil and aborts otherwise; the
	// session is released in both cases.
	WithSession(ctx context.Context, fn func(ctx context.Context, sess Session) error) error

	// Close releases the lake connection.
	Close(ctx context.Context) error
}

// Session is one active scan-session transaction. It holds no business data,
// only the transaction lifecycle state managed by WithSession.
type Session interface {
	// ListCollections returns the names of collections whose name starts
	// with prefix. An empty prefix matches every collection.
	ListCollections(ctx context.Context, prefix string) ([]string, error)

	// Find returns a cursor over the records of a collection matching the
	// filter. A nil filter matches all records. The caller owns the cursor
	// and must close it on every exit path.
	Find(ctx context.Context, collection string, filter map[string]any) (Cursor, error)
}

// Cursor iterates the records of one collection.
type Cursor interface {
	// Next advances the cursor. It returns false when the cursor is
	// exhausted or has failed; check Err to distinguish.
	Next(ctx context.Context) bool

	// Decode unmarshals the current record.
	Decode(record *core.RawRecord) error

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor's server-side resources.
	Close(ctx context.Context) error
}
