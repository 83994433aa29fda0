// Package filesystem reads a local folder tree and watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const channelBuffer = 100

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector closed")

// Options controls which files the connector reports.
type Options struct {
	// Exclude holds doublestar globs matched against slash-separated paths
	// relative to the root. A matching directory is skipped entirely.
	Exclude []string

	// IncludeHidden reports dot files and descends into dot directories.
	IncludeHidden bool
}

// Connector reads files from a local directory tree.
type Connector struct {
	rootPath string
	opts     Options

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a connector rooted at rootPath. Relative roots are made absolute.
func New(rootPath string, opts Options) *Connector {
	if abs, err := filepath.Abs(rootPath); err == nil && rootPath != "" {
		rootPath = abs
	}
	return &Connector{rootPath: rootPath, opts: opts}
}

// Root returns the tree root as a file URI.
func (c *Connector) Root() domain.URI {
	return domain.FileURI(c.rootPath)
}

// Validate checks that the root is a readable directory and that every
// exclude pattern is well formed.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.checkRoot(); err != nil {
		return err
	}

	f, err := os.Open(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path is not readable: %w", err)
	}
	_ = f.Close()

	for _, pattern := range c.opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: invalid exclude pattern %q", domain.ErrInvalidInput, pattern)
		}
	}
	return nil
}

// Walk emits every included file under the root.
// Unreadable files are reported on the error channel and skipped.
func (c *Connector) Walk(ctx context.Context) (<-chan domain.RawResource, <-chan error) {
	out := make(chan domain.RawResource, channelBuffer)
	errs := make(chan error, channelBuffer)

	go func() {
		defer close(out)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		walkErr := filepath.WalkDir(c.rootPath, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				sendErr(ctx, errs, fmt.Errorf("walk %s: %w", p, err))
				return nil
			}
			if c.skip(p, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			raw, err := readFile(p)
			if err != nil {
				sendErr(ctx, errs, err)
				return nil
			}
			select {
			case out <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
			sendErr(ctx, errs, walkErr)
		}
	}()

	return out, errs
}

// Watch reports file changes until ctx is cancelled. New directories are
// watched as they appear and the files already inside them are reported
// as created.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawResourceChange, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	if err := c.checkRoot(); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addWatchDirs(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("add watch dirs: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = watcher.Close()
		return nil, ErrClosed
	}
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	changes := make(chan domain.RawResourceChange, channelBuffer)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

// Close stops every watcher. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.RawResourceChange) {
	defer close(changes)
	defer c.release(watcher)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			for _, change := range c.handleEvent(watcher, event) {
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", c.rootPath, err)
		}
	}
}

// handleEvent maps one fsnotify event to zero or more changes.
func (c *Connector) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) []domain.RawResourceChange {
	p := event.Name

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if c.skip(p, false) {
			return nil
		}
		return []domain.RawResourceChange{{
			Type:     domain.ChangeDeleted,
			Resource: domain.RawResource{URI: domain.FileURI(p)},
		}}

	case event.Has(fsnotify.Create):
		info, err := os.Stat(p)
		if err != nil {
			return nil
		}
		if c.skip(p, info.IsDir()) {
			return nil
		}
		if info.IsDir() {
			return c.watchNewDir(watcher, p)
		}
		return c.changeFor(domain.ChangeCreated, p)

	case event.Has(fsnotify.Write):
		if c.skip(p, false) {
			return nil
		}
		return c.changeFor(domain.ChangeUpdated, p)
	}

	return nil
}

// watchNewDir starts watching a directory created after Watch began and
// reports the files it already holds.
func (c *Connector) watchNewDir(watcher *fsnotify.Watcher, dir string) []domain.RawResourceChange {
	if err := c.addWatchDirs(watcher, dir); err != nil {
		logger.Warn("watch %s: %v", dir, err)
	}

	var changes []domain.RawResourceChange
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if c.skip(p, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			changes = append(changes, c.changeFor(domain.ChangeCreated, p)...)
		}
		return nil
	})
	return changes
}

func (c *Connector) changeFor(t domain.ChangeType, p string) []domain.RawResourceChange {
	raw, err := readFile(p)
	if err != nil {
		// The file may already be gone again; a Remove event follows.
		logger.Debug("read %s: %v", p, err)
		return nil
	}
	return []domain.RawResourceChange{{Type: t, Resource: raw}}
}

func (c *Connector) addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if c.skip(p, true) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

func (c *Connector) release(watcher *fsnotify.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.watchers {
		if w == watcher {
			c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
			_ = w.Close()
			return
		}
	}
}

// skip reports whether p is hidden or excluded. The root itself is never skipped.
func (c *Connector) skip(p string, isDir bool) bool {
	rel, err := filepath.Rel(c.rootPath, p)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)

	if !c.opts.IncludeHidden {
		for _, segment := range strings.Split(rel, "/") {
			if strings.HasPrefix(segment, ".") {
				return true
			}
		}
	}

	for _, pattern := range c.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
				return true
			}
		}
	}
	return false
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path does not exist: %s", c.rootPath)
		}
		return fmt.Errorf("stat root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path is not a directory: %s", c.rootPath)
	}
	return nil
}

func readFile(p string) (domain.RawResource, error) {
	info, err := os.Stat(p)
	if err != nil {
		return domain.RawResource{}, fmt.Errorf("stat %s: %w", p, err)
	}
	content, err := os.ReadFile(p)
	if err != nil {
		return domain.RawResource{}, fmt.Errorf("read %s: %w", p, err)
	}
	return domain.RawResource{
		URI:     domain.FileURI(p),
		Content: content,
		ModTime: info.ModTime(),
	}, nil
}

func sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}
