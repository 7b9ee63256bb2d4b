// Package filesystem loads documents from a local directory and watches it
// for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
	"github.com/custodia-labs/pdfqa/internal/normalisers"
)

// Verify interface compliance.
var (
	_ driven.DocumentLoader   = (*Loader)(nil)
	_ driven.DirectoryWatcher = (*Loader)(nil)
)

// ErrClosed is returned when the loader has been closed.
var ErrClosed = errors.New("loader closed")

// Option configures a Loader.
type Option func(*Loader)

// WithRecursive makes Load and Watch descend into subdirectories.
func WithRecursive(recursive bool) Option {
	return func(l *Loader) {
		l.recursive = recursive
	}
}

// Loader reads supported files from a directory through a normaliser registry.
type Loader struct {
	registry  driven.NormaliserRegistry
	recursive bool

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a loader backed by registry.
func New(registry driven.NormaliserRegistry, opts ...Option) *Loader {
	l := &Loader{registry: registry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supports reports whether path has an extension a registered normaliser handles.
func (l *Loader) Supports(path string) bool {
	mimeType := normalisers.MIMETypeForPath(path)
	if mimeType == "" {
		return false
	}
	return slices.Contains(l.registry.SupportedMIMETypes(), mimeType)
}

// Load reads every supported file in dir in path order.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.Document, []domain.FileFailure, error) {
	paths, err := l.list(dir)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Found %d supported files in %s", len(paths), dir)

	docs := make([]domain.Document, 0, len(paths))
	var failures []domain.FileFailure
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, failures, err
		}
		doc, err := l.LoadFile(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			failures = append(failures, domain.FileFailure{Path: path, Err: err})
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, failures, nil
}

// LoadFile reads and normalises a single file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*domain.Document, error) {
	mimeType := normalisers.MIMETypeForPath(path)
	if mimeType == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := l.registry.Normalise(ctx, &domain.RawDocument{
		Source:   filepath.Base(path),
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"size":     info.Size(),
			"modified": info.ModTime().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", path, err)
	}
	doc := result.Document
	return &doc, nil
}

// list returns the sorted supported file paths under dir.
func (l *Loader) list(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read directory %s: %w", dir, domain.ErrInvalidInput)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !l.recursive || isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !l.Supports(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch reports created, updated and deleted supported files under dir
// until ctx is cancelled. The channel is closed when watching stops.
func (l *Loader) Watch(ctx context.Context, dir string) (<-chan domain.FileChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := l.addDirs(watcher, dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	l.watchers = append(l.watchers, watcher)

	changes := make(chan domain.FileChange, 16)
	go l.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (l *Loader) addDirs(watcher *fsnotify.Watcher, dir string) error {
	if !l.recursive {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.FileChange) {
	defer close(changes)
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if l.recursive && event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if err := l.addDirs(watcher, event.Name); err != nil {
						logger.Warn("Failed to watch %s: %v", event.Name, err)
					}
				}
			}
			change := l.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a file change, or nil when the
// event is ignored.
func (l *Loader) handleFsEvent(event fsnotify.Event) *domain.FileChange {
	if isHidden(filepath.Base(event.Name)) || !l.Supports(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.FileChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.FileChange{Type: changeType, Path: event.Name}
	default:
		return nil
	}
}

// Close stops every active watcher. Close is idempotent.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	for _, w := range l.watchers {
		errs = append(errs, w.Close())
	}
	l.watchers = nil
	return errors.Join(errs...)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
