package rubric

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store owns the process-wide active rubric. The active value is replaced
// wholesale and never mutated in place, so concurrent readers always see
// either the previous or the next rubric, never a partial one.
type Store struct {
	path     string
	versions *VersionRepo // optional; nil disables version history
	log      *zap.Logger

	mu     sync.RWMutex
	active Rubric
}

// NewStore creates a store persisting the rubric document at path.
func NewStore(path string, versions *VersionRepo, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, versions: versions, log: log}
}

// Bootstrap loads the on-disk rubric document, writing the default rubric
// first if no document exists yet. A document that no longer validates is
// left on disk untouched and the default rubric is served instead.
func (s *Store) Bootstrap(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("rubric data dir: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		def := Default()
		doc, merr := json.MarshalIndent(def, "", "  ")
		if merr != nil {
			return merr
		}
		if werr := writeFileAtomic(s.path, doc); werr != nil {
			return fmt.Errorf("write default rubric: %w", werr)
		}
		s.publish(def)
		s.log.Info("rubric bootstrapped with default document", zap.Int("sections", len(def)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rubric document: %w", err)
	}

	r, verr := Validate(raw)
	if verr != nil {
		s.log.Warn("stored rubric document failed validation, serving default",
			zap.String("path", s.path), zap.Error(verr))
		s.publish(Default())
		return nil
	}
	s.publish(r)
	return nil
}

// Load returns the active rubric. The returned value is a snapshot: it is
// never mutated after publication, so callers may read it without locking.
func (s *Store) Load() Rubric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Replace validates doc, persists it, records a version row, and swaps the
// active rubric. All-or-nothing: a validation failure changes nothing, and
// only a *MalformedRubricError crosses back to the caller for bad input.
func (s *Store) Replace(ctx context.Context, doc []byte, replacedBy string) (Rubric, error) {
	r, err := Validate(doc)
	if err != nil {
		return nil, err
	}

	canonical, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.path, canonical); err != nil {
		return nil, fmt.Errorf("persist rubric document: %w", err)
	}

	if s.versions != nil {
		// Version history is best effort: the swap already happened on disk
		// and rolling it back for a bookkeeping failure would be worse.
		if verr := s.versions.Record(ctx, replacedBy, canonical); verr != nil {
			s.log.Warn("rubric version record failed", zap.Error(verr))
		}
	}

	s.publish(r)
	s.log.Info("rubric replaced", zap.String("by", replacedBy), zap.Int("sections", len(r)))
	return r, nil
}

// Rollback re-activates a stored version. The restored document passes
// through Replace, so it is re-validated and appended as a fresh version.
func (s *Store) Rollback(ctx context.Context, versionID int64, by string) (Rubric, error) {
	if s.versions == nil {
		return nil, ErrVersionNotFound
	}
	v, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.Replace(ctx, v.Doc, by)
}

// Versions exposes the history repo for listing endpoints; may be nil.
func (s *Store) Versions() *VersionRepo { return s.versions }

func (s *Store) publish(r Rubric) {
	s.mu.Lock()
	s.active = r
	s.mu.Unlock()
}

// writeFileAtomic writes via a temp file in the same directory plus rename,
// so a crash mid-write never leaves a truncated rubric document behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rubric-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
