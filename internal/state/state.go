package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"portfolio-alerts/internal/dedupe"
)

const lockRetryDelay = 100 * time.Millisecond

// ErrLockNotAcquired reports that the exclusive state lock could not be
// taken before the caller's deadline. The run should give up without writing.
var ErrLockNotAcquired = errors.New("state: exclusive lock not acquired")

// Document is the full persisted dedup state. Unknown top-level keys survive
// a load/save round trip untouched.
type Document struct {
	Last      map[string]dedupe.Record      `json:"last"`
	Done      map[string]dedupe.MacroRecord `json:"done"`
	UpdatedAt int64                         `json:"updatedAt"`

	extra map[string]json.RawMessage
}

// NewDocument returns an empty document with initialised maps.
func NewDocument() Document {
	return Document{
		Last: make(map[string]dedupe.Record),
		Done: make(map[string]dedupe.MacroRecord),
	}
}

// UnmarshalJSON keeps unrecognised keys aside so Save does not drop them.
func (d *Document) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = NewDocument()
	for key, val := range raw {
		switch key {
		case "last":
			if err := json.Unmarshal(val, &d.Last); err != nil {
				return fmt.Errorf("decode last: %w", err)
			}
		case "done":
			if err := json.Unmarshal(val, &d.Done); err != nil {
				return fmt.Errorf("decode done: %w", err)
			}
		case "updatedAt":
			if err := json.Unmarshal(val, &d.UpdatedAt); err != nil {
				return fmt.Errorf("decode updatedAt: %w", err)
			}
		default:
			if d.extra == nil {
				d.extra = make(map[string]json.RawMessage)
			}
			d.extra[key] = val
		}
	}
	if d.Last == nil {
		d.Last = make(map[string]dedupe.Record)
	}
	if d.Done == nil {
		d.Done = make(map[string]dedupe.MacroRecord)
	}
	return nil
}

// MarshalJSON merges the retained unknown keys back into the output.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+3)
	for key, val := range d.extra {
		out[key] = val
	}
	out["last"] = d.Last
	out["done"] = d.Done
	out["updatedAt"] = d.UpdatedAt
	return json.Marshal(out)
}

// File persists a Document as JSON, guarded by an advisory file lock.
//
// 读路径持共享锁; 读-改-写必须通过 WithLock 持独占锁完成整个周期。
// 锁文件与数据文件分离, 避免原子替换时锁随旧 inode 失效。
type File struct {
	path     string
	lockPath string
	logger   zerolog.Logger
}

// NewFile constructs a state file handle. The lock token lives next to the
// data file with a .lock suffix.
func NewFile(path string, logger zerolog.Logger) *File {
	return &File{
		path:     path,
		lockPath: path + ".lock",
		logger:   logger.With().Str("component", "state_file").Logger(),
	}
}

// Path returns the data file location.
func (f *File) Path() string {
	return f.path
}

// Load returns the persisted document under a shared lock. A missing or
// corrupt file yields an empty document, never an error: stale dedup state
// is recoverable, a crashed monitor is not.
func (f *File) Load(ctx context.Context) Document {
	lock := flock.New(f.lockPath)
	acquired, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !acquired {
		f.logger.Warn().Err(err).Msg("共享锁获取失败, 按空状态处理")
		return NewDocument()
	}
	defer func() { _ = lock.Unlock() }()

	return f.read()
}

func (f *File) read() Document {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn().Err(err).Str("path", f.path).Msg("状态文件读取失败, 按空状态处理")
		}
		return NewDocument()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("状态文件损坏, 按空状态处理")
		return NewDocument()
	}
	return doc
}

// Save writes the document atomically: temp file in the same directory, then
// rename over the target. Parent directories are created on first write.
func (f *File) Save(doc Document) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// WithLock runs fn inside an exclusive read-modify-write transaction:
// acquire lock, load, mutate, save, release. The lock wait is bounded by ctx,
// so contention cannot outlive the caller's deadline. If fn returns an error
// nothing is persisted.
func (f *File) WithLock(ctx context.Context, fn func(doc *Document) error) error {
	dir := filepath.Dir(f.lockPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lock := flock.New(f.lockPath)
	acquired, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	if !acquired {
		return ErrLockNotAcquired
	}
	defer func() { _ = lock.Unlock() }()

	doc := f.read()
	if err := fn(&doc); err != nil {
		return err
	}
	return f.Save(doc)
}
