package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/daemon"
)

// Key prefixes for ledger data
const (
	runReportPrefix = "runrep"
	runReportSeq    = "runrepseq"
)

const defaultSequenceBandwidth = 100

// Store is a badger-backed run ledger.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

var _ daemon.Recorder = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the ledger database at the given path, creating the directory
// if needed. With inMemory set the ledger lives only for the process.
func Open(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := db.GetSequence([]byte(runReportSeq), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		seq:    seq,
		logger: slog.Default().With("component", "ledger"),
	}, nil
}

// Record persists one run report, assigning its ledger sequence number.
func (s *Store) Record(ctx context.Context, report *core.RunReport) error {
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("ledger: next sequence: %w", err)
	}
	report.Seq = seq

	key := makeRunReportKey(seq)
	value := marshalRunReport(report)

	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("ledger: record run %s: %w", report.RunId, err)
	}

	s.logger.Debug("recorded run report", "seq", seq, "run", report.RunId, "failed", report.Failed)
	return nil
}

// Recent returns up to n of the most recent run reports, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*core.RunReport, error) {
	if n <= 0 {
		return nil, nil
	}

	prefix := []byte(runReportPrefix + ":")
	// In reverse mode, seek to a key past every report key within the prefix.
	seek := append(append([]byte{}, prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

	var reports []*core.RunReport
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seek); iter.ValidForPrefix(prefix) && len(reports) < n; iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				report, err := unmarshalRunReport(val)
				if err != nil {
					return err
				}
				reports = append(reports, report)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: list recent runs: %w", err)
	}

	return reports, nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Error("failed to release ledger sequence", "err", err)
	}
	return s.db.Close()
}

// makeRunReportKey generates a key for a run report by sequence number.
// Sequence bytes are big-endian so lexicographic key order equals insertion
// order.
func makeRunReportKey(seq uint64) []byte {
	prefix := runReportPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
