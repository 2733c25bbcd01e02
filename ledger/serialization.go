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


package ledger

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/lakefeed/core"
)

// runReportMUS is the MUS-format serializer for core.RunReport. StartedAt is
// stored as Unix microseconds and restored in UTC.
var runReportMUS = runReportSer{}

type runReportSer struct{}

func (runReportSer) Marshal(v core.RunReport, bs []byte) (n int) {
	n = varint.Uint64.Marshal(v.Seq, bs)
	n += ord.String.Marshal(v.RunId, bs[n:])
	n += varint.Int64.Marshal(v.StartedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(int64(v.Duration), bs[n:])
	n += varint.PositiveInt.Marshal(v.Stats.Collections, bs[n:])
	n += varint.PositiveInt.Marshal(v.Stats.Units, bs[n:])
	n += varint.PositiveInt.Marshal(v.Stats.Skipped, bs[n:])
	n += varint.PositiveInt.Marshal(v.Stats.Flushes, bs[n:])
	n += ord.Bool.Marshal(v.Failed, bs[n:])
	n += ord.String.Marshal(v.Err, bs[n:])
	return n
}

func (runReportSer) Unmarshal(bs []byte) (v core.RunReport, n int, err error) {
	var n1 int
	v.Seq, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.RunId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var startedAt int64
	startedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartedAt = time.UnixMicro(startedAt).UTC()
	var duration int64
	duration, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Duration = time.Duration(duration)
	v.Stats.Collections, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Stats.Units, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Stats.Skipped, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Stats.Flushes, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Failed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Err, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (runReportSer) Size(v core.RunReport) (size int) {
	size = varint.Uint64.Size(v.Seq)
	size += ord.String.Size(v.RunId)
	size += varint.Int64.Size(v.StartedAt.UnixMicro())
	size += varint.Int64.Size(int64(v.Duration))
	size += varint.PositiveInt.Size(v.Stats.Collections)
	size += varint.PositiveInt.Size(v.Stats.Units)
	size += varint.PositiveInt.Size(v.Stats.Skipped)
	size += varint.PositiveInt.Size(v.Stats.Flushes)
	size += ord.Bool.Size(v.Failed)
	size += ord.String.Size(v.Err)
	return size
}

// marshalRunReport serializes a RunReport to bytes.
func marshalRunReport(report *core.RunReport) []byte {
	buf := make([]byte, runReportMUS.Size(*report))
	runReportMUS.Marshal(*report, buf)
	return buf
}

// unmarshalRunReport deserializes a RunReport from bytes.
func unmarshalRunReport(data []byte) (*core.RunReport, error) {
	report, _, err := runReportMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
