// Package badgerjournal persists signals, ingestion runs and system settings
// in an embedded Badger database and backs the in-memory store with it.
package badgerjournal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/repository/memory"
)

const (
	signalPrefix  = "signal/"
	runPrefix     = "run/"
	settingPrefix = "setting/"

	// Runs are history only; the store keeps the newest few hundred.
	runTTL = 30 * 24 * time.Hour
)

type OpenOptions struct {
	Path     string
	InMemory bool
}

// Journal stores one JSON document per signal under signal/<id>, per
// ingestion run under run/<started>/<id> and per setting under setting/<key>.
type Journal struct {
	db *badger.DB
}

var (
	_ memory.Journal      = (*Journal)(nil)
	_ memory.StateJournal = (*Journal)(nil)
)

func Open(opts OpenOptions) (*Journal, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("badgerjournal: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func key(id string) []byte {
	return []byte(signalPrefix + id)
}

func runKey(item models.IngestionRun) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", runPrefix, item.StartedAt.UnixNano(), item.ID))
}

// PutRun stores one ingestion run with a TTL.
func (j *Journal) PutRun(ctx context.Context, item models.IngestionRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(runKey(item), raw).WithTTL(runTTL))
	})
}

// PutSetting overwrites the setting stored under its key.
func (j *Journal) PutSetting(ctx context.Context, item models.SystemSetting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingPrefix+item.Key), raw)
	})
}

// PutSignals writes all items in one transaction.
func (j *Journal) PutSignals(ctx context.Context, items []models.Signal) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		for _, item := range items {
			raw, err := json.Marshal(record{Signal: item, Seq: item.Seq})
			if err != nil {
				return err
			}
			if err := txn.Set(key(item.ID), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSignals removes ids through a write batch so large clears do not
// exceed the transaction size limit.
func (j *Journal) DeleteSignals(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range ids {
		if err := wb.Delete(key(id)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// scan calls fn with the value of every key under prefix, in key order.
func (j *Journal) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSignals reads every stored signal.
func (j *Journal) LoadSignals(ctx context.Context) ([]models.Signal, error) {
	var out []models.Signal
	err := j.scan(ctx, signalPrefix, func(val []byte) error {
		var rec record
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		rec.Signal.Seq = rec.Seq
		out = append(out, rec.Signal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRuns reads the unexpired ingestion runs, oldest first.
func (j *Journal) LoadRuns(ctx context.Context) ([]models.IngestionRun, error) {
	var out []models.IngestionRun
	err := j.scan(ctx, runPrefix, func(val []byte) error {
		var item models.IngestionRun
		if err := json.Unmarshal(val, &item); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadSettings reads every stored system setting.
func (j *Journal) LoadSettings(ctx context.Context) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	err := j.scan(ctx, settingPrefix, func(val []byte) error {
		var item models.SystemSetting
		if err := json.Unmarshal(val, &item); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads everything the store restores on startup.
func (j *Journal) Load(ctx context.Context) (memory.Snapshot, error) {
	var (
		snap memory.Snapshot
		err  error
	)
	if snap.Signals, err = j.LoadSignals(ctx); err != nil {
		return snap, err
	}
	if snap.Runs, err = j.LoadRuns(ctx); err != nil {
		return snap, err
	}
	if snap.Settings, err = j.LoadSettings(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// record keeps Seq, which the API encoding hides.
type record struct {
	models.Signal
	Seq int64 `json:"seq"`
}

// OpenStore opens the journal and returns a memory store restored from it.
func OpenStore(ctx context.Context, opts OpenOptions, storeOpts repository.Options) (*memory.Store, *Journal, error) {
	j, err := Open(opts)
	if err != nil {
		return nil, nil, err
	}
	snap, err := j.Load(ctx)
	if err != nil {
		_ = j.Close()
		return nil, nil, err
	}
	return memory.NewWithJournal(storeOpts, j, snap), j, nil
}
