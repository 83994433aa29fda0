package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/events"
	"github.com/custodia-labs/refindex/internal/core/index"
	"github.com/custodia-labs/refindex/internal/core/ports/driving"
	"github.com/custodia-labs/refindex/internal/logger"
)

// Ensure Workspace implements the interface.
var _ driving.ResourceService = (*Workspace)(nil)

// Workspace is the authoritative set of resources.
//
// Every mutation publishes a domain.ResourceEvent. Events are numbered and
// published while the workspace lock is held, so subscribers observe them in
// mutation order.
type Workspace struct {
	mu       sync.RWMutex
	store    *index.Store[domain.Resource]
	emitter  *events.Emitter[domain.ResourceEvent]
	seq      uint64
	disposed bool
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(defaultExtension string) *Workspace {
	return &Workspace{
		store:   index.NewStore[domain.Resource](defaultExtension),
		emitter: events.NewEmitter[domain.ResourceEvent](),
	}
}

// Set adds r, or replaces the resource at the same path.
// The URI fragment is not stored.
func (w *Workspace) Set(r domain.Resource) error {
	if r.URI.IsZero() {
		return fmt.Errorf("%w: resource without uri", domain.ErrInvalidInput)
	}
	r.URI = r.URI.WithoutFragment()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed {
		return domain.ErrDisposed
	}

	old, existed := w.store.Set(r)
	if existed {
		w.publish(domain.ResourceEvent{Type: domain.EventUpdated, Resource: r, Previous: &old})
		return nil
	}
	w.publish(domain.ResourceEvent{Type: domain.EventAdded, Resource: r})
	return nil
}

// Delete removes the resource at exactly uri's path.
// Deleting a missing resource does nothing and publishes nothing.
func (w *Workspace) Delete(uri domain.URI) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed {
		return false
	}

	old, ok := w.store.Delete(uri)
	if !ok {
		return false
	}
	w.publish(domain.ResourceEvent{Type: domain.EventDeleted, Resource: old})
	return true
}

// DeleteTree removes the resource at uri's path and every resource below it
// when the path names a directory. It returns the number removed.
func (w *Workspace) DeleteTree(uri domain.URI) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed {
		return 0
	}

	removed := 0
	if old, ok := w.store.Delete(uri); ok {
		w.publish(domain.ResourceEvent{Type: domain.EventDeleted, Resource: old})
		removed++
	}

	dir := strings.TrimSuffix(uri.Path, "/") + "/"
	for _, r := range w.store.List() {
		if !strings.HasPrefix(r.URI.Path, dir) {
			continue
		}
		if old, ok := w.store.Delete(r.URI); ok {
			w.publish(domain.ResourceEvent{Type: domain.EventDeleted, Resource: old})
			removed++
		}
	}
	return removed
}

// Clear removes every resource, publishing one deleted event per resource.
func (w *Workspace) Clear() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed {
		return 0
	}

	removed := w.store.Clear()
	for _, r := range removed {
		w.publish(domain.ResourceEvent{Type: domain.EventDeleted, Resource: r})
	}
	return len(removed)
}

// Dispose closes every subscription. Events already published are still
// delivered; later mutations are rejected and later subscribers see a
// closed stream.
func (w *Workspace) Dispose() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed {
		return
	}
	w.disposed = true
	w.emitter.Dispose()
	logger.Debug("workspace disposed after %d events", w.seq)
}

// Subscribe returns a subscription to future resource events.
func (w *Workspace) Subscribe() *events.Subscription[domain.ResourceEvent] {
	sub, _ := w.SubscribeFrom()
	return sub
}

// SubscribeFrom returns a subscription together with the sequence number of
// the last event it will not receive.
func (w *Workspace) SubscribeFrom() (*events.Subscription[domain.ResourceEvent], uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.emitter.Subscribe(), w.seq
}

// Seq returns the sequence number of the most recent event.
func (w *Workspace) Seq() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.seq
}

// Has reports whether a resource exists at exactly uri's path.
func (w *Workspace) Has(uri domain.URI) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Has(uri)
}

// Get returns the resource at uri, or an error wrapping domain.ErrNotFound.
func (w *Workspace) Get(uri domain.URI) (domain.Resource, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Get(uri)
}

// FindURI returns the resource at uri, if any.
func (w *Workspace) FindURI(uri domain.URI) (domain.Resource, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.FindURI(uri)
}

// Find resolves an absolute path, identifier or relative reference.
func (w *Workspace) Find(reference string, base domain.URI) (domain.Resource, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Find(reference, base)
}

// List returns every resource sorted by path.
func (w *Workspace) List() []domain.Resource {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.List()
}

// Len returns the number of resources.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Len()
}

// DefaultExtension returns the extension tried for extension-less references.
func (w *Workspace) DefaultExtension() string {
	return w.store.DefaultExtension()
}

// GetIdentifier returns the shortest unambiguous reference for uri.
func (w *Workspace) GetIdentifier(uri domain.URI, exclude ...domain.URI) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.GetIdentifier(uri, exclude...)
}

// ListByIdentifier returns every resource an identifier may refer to.
func (w *Workspace) ListByIdentifier(identifier string) []domain.Resource {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.ListByIdentifier(identifier)
}

// Ambiguous reports whether identifier matches more than one resource.
func (w *Workspace) Ambiguous(identifier string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.IsAmbiguous(identifier)
}

// ResolveLink returns the URI reference points at from the resource at from.
// The fragment is carried over. Unresolved references yield a placeholder URI.
func (w *Workspace) ResolveLink(from domain.URI, reference string) domain.URI {
	if r, ok := w.Find(reference, from); ok {
		return r.URI
	}

	target, fragment, _ := strings.Cut(reference, "#")
	if target == "" {
		return from.WithFragment(fragment)
	}
	return domain.PlaceholderURI(target).WithFragment(fragment)
}

// publish numbers and emits ev. Caller must hold the write lock.
func (w *Workspace) publish(ev domain.ResourceEvent) {
	w.seq++
	ev.Seq = w.seq
	w.emitter.Emit(ev)
	logger.Debug("workspace %s %s (seq %d)", ev.Type, ev.Resource.URI.Path, ev.Seq)
}
