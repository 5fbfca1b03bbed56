// Package bolt is a storage.Storage backed by a bbolt file.  Each run
// gets a bucket.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Comcast/ntta/storage"
	"github.com/Comcast/ntta/util"

	bolt "go.etcd.io/bbolt"
)

type Storage struct {
	Logger   *slog.Logger
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) trace(msg string, args ...any) {
	if s.Logger != nil {
		util.Trace(s.Logger, "bolt storage "+msg, args...)
	}
}

// key keeps records in the order they were written.
func key(seq uint64) []byte {
	return []byte(fmt.Sprintf("%012d", seq))
}

func (s *Storage) WriteResults(ctx context.Context, run string, rs []*storage.Record) error {
	s.trace("WriteResults", "run", run, "records", len(rs))

	if len(rs) == 0 {
		return nil
	}

	vals := make([][]byte, 0, len(rs))
	for _, r := range rs {
		js, err := json.Marshal(r)
		if err != nil {
			return err
		}
		vals = append(vals, js)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(run))
		if err != nil {
			return err
		}
		for _, js := range vals {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err = b.Put(key(seq), js); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) GetResults(ctx context.Context, run string) ([]*storage.Record, error) {
	s.trace("GetResults", "run", run)
	var acc []*storage.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(run))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var r storage.Record
			if err := json.Unmarshal(bs, &r); err != nil {
				return err
			}
			acc = append(acc, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Storage) Runs(ctx context.Context) ([]string, error) {
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	return acc, err
}

// RemRun deletes a run.
func (s *Storage) RemRun(ctx context.Context, run string) error {
	s.trace("RemRun", "run", run)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(run))
	})
}
