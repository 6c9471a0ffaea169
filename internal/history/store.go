package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/beonanotherplanet/tiskofy/internal/model"
)

var downloadsBucket = []byte("downloads")

var (
	ErrStoreClosed = errors.New("history store is closed")
	ErrNotFinished = errors.New("task is not finished")
)

// Entry is one finished download as persisted on disk
type Entry struct {
	Seq        uint64           `json:"-"`
	TaskID     string           `json:"task_id"`
	URL        string           `json:"url"`
	Source     model.Source     `json:"source"`
	Title      string           `json:"title"`
	OutputPath string           `json:"output_path,omitempty"`
	Status     model.TaskStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Outcome returns the user-facing outcome of the entry
func (e Entry) Outcome() model.Outcome {
	return model.OutcomeOf(&model.DownloadTask{Status: e.Status})
}

// Store is an append-only bbolt log of finished downloads
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(downloadsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history bucket: %w", err)
	}
	return &Store{db: db, path: trimmed}, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. Calling it again is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Record appends a finished task. Unfinished tasks are rejected.
func (s *Store) Record(task *model.DownloadTask) error {
	if task == nil || !task.Status.IsFinished() {
		return ErrNotFinished
	}
	entry := Entry{
		TaskID:     task.ID,
		URL:        task.URL,
		Source:     task.Source,
		Title:      task.Title,
		OutputPath: task.OutputPath,
		Status:     task.Status,
		Error:      task.LastError,
		StartedAt:  task.StartedAt,
		FinishedAt: task.FinishedAt,
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(downloadsBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next history sequence: %w", err)
		}
		return bucket.Put(seqKey(seq), value)
	})
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(downloadsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode history entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			e.Seq = binary.BigEndian.Uint64(k)
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
