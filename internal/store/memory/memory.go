// Package memory is an in-process Store with live snapshot fan-out. It
// backs the engine's tests and offline development; the firestore package
// is the production twin behind the same interface.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// Store keeps documents per collection path and notifies watchers of that
// collection on every mutation. Each watcher drains its own queue on a
// dedicated goroutine, so emissions within one subscription stay ordered
// while different subscriptions interleave arbitrarily.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	watchers    map[int]*watcher
	nextWatcher int

	lastStamp time.Time
	now       func() time.Time

	writeErrs map[string]error // path prefix -> error, test hook
	watchErrs map[string]error // collection -> error, test hook
}

type watcher struct {
	id         int
	collection string
	query      store.Query
	onSnapshot func(store.Snapshot)
	onError    func(error)

	queue chan store.Snapshot
	stop  chan struct{}
	once  sync.Once
}

// New creates an empty store using the wall clock for server timestamps.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store with an injectable clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		watchers:    make(map[int]*watcher),
		now:         now,
		writeErrs:   make(map[string]error),
		watchErrs:   make(map[string]error),
	}
}

// FailWrites makes every write (Set/Add/Delete) under the path prefix
// return err. Pass nil to clear. Test hook.
func (s *Store) FailWrites(pathPrefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErrs, pathPrefix)
		return
	}
	s.writeErrs[pathPrefix] = err
}

// FailWatch makes new and existing subscriptions on the collection fail
// with err. Test hook.
func (s *Store) FailWatch(collection string, err error) {
	s.mu.Lock()
	var failed []*watcher
	s.watchErrs[collection] = err
	for _, w := range s.watchers {
		if w.collection == collection {
			failed = append(failed, w)
		}
	}
	s.mu.Unlock()

	for _, w := range failed {
		w.fail(err)
	}
}

func (s *Store) Watch(ctx context.Context, collection string, q store.Query, onSnapshot func(store.Snapshot), onError func(error)) store.DisposeFunc {
	s.mu.Lock()
	if err := s.watchErrs[collection]; err != nil {
		s.mu.Unlock()
		go onError(err)
		return func() {}
	}

	w := &watcher{
		id:         s.nextWatcher,
		collection: collection,
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
		queue:      make(chan store.Snapshot, 64),
		stop:       make(chan struct{}),
	}
	s.nextWatcher++
	s.watchers[w.id] = w

	initial := s.snapshotLocked(collection, q)
	s.mu.Unlock()

	go w.run(ctx)
	w.push(initial)

	return func() {
		s.mu.Lock()
		delete(s.watchers, w.id)
		s.mu.Unlock()
		w.close()
	}
}

func (w *watcher) run(ctx context.Context) {
	for {
		select {
		case snap := <-w.queue:
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			w.onSnapshot(snap)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *watcher) push(snap store.Snapshot) {
	select {
	case w.queue <- snap:
	case <-w.stop:
	}
}

func (w *watcher) fail(err error) {
	w.once.Do(func() {
		close(w.stop)
		w.onError(err)
	})
}

func (w *watcher) close() {
	w.once.Do(func() { close(w.stop) })
}

func (s *Store) Get(ctx context.Context, path string) (store.Document, bool, error) {
	collection, id := store.Split(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		return store.Document{}, false, nil
	}
	fields, ok := docs[id]
	if !ok {
		return store.Document{}, false, nil
	}
	return store.Document{ID: id, Fields: cloneFields(fields)}, true, nil
}

func (s *Store) List(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.watchErrs[collection]; err != nil {
		return nil, err
	}
	return s.snapshotLocked(collection, q).Docs, nil
}

func (s *Store) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	collection, id := store.Split(path)

	s.mu.Lock()
	if err := s.writeErrLocked(path); err != nil {
		s.mu.Unlock()
		return err
	}
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	resolved := s.resolveLocked(fields)
	if merge {
		existing := docs[id]
		if existing == nil {
			existing = make(map[string]any)
			docs[id] = existing
		}
		for k, v := range resolved {
			existing[k] = v
		}
	} else {
		docs[id] = resolved
	}
	s.notifyLocked(collection)
	s.mu.Unlock()
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	if err := s.writeErrLocked(collection + "/" + id); err != nil {
		s.mu.Unlock()
		return "", err
	}
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	docs[id] = s.resolveLocked(fields)
	s.notifyLocked(collection)
	s.mu.Unlock()
	return id, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id := store.Split(path)

	s.mu.Lock()
	if err := s.writeErrLocked(path); err != nil {
		s.mu.Unlock()
		return err
	}
	if docs, ok := s.collections[collection]; ok {
		if _, ok := docs[id]; ok {
			delete(docs, id)
			s.notifyLocked(collection)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) writeErrLocked(path string) error {
	for prefix, err := range s.writeErrs {
		if strings.HasPrefix(path, prefix) {
			return err
		}
	}
	return nil
}

// resolveLocked replaces the ServerTimestamp sentinel with a strictly
// monotonic store-side timestamp.
func (s *Store) resolveLocked(fields map[string]any) map[string]any {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == any(store.ServerTimestamp) {
			resolved[k] = s.stampLocked()
			continue
		}
		resolved[k] = v
	}
	return resolved
}

func (s *Store) stampLocked() time.Time {
	t := s.now()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}

func (s *Store) notifyLocked(collection string) {
	for _, w := range s.watchers {
		if w.collection != collection {
			continue
		}
		w.push(s.snapshotLocked(collection, w.query))
	}
}

func (s *Store) snapshotLocked(collection string, q store.Query) store.Snapshot {
	var docs []store.Document
	for id, fields := range s.collections[collection] {
		if !matches(fields, q.Filters) {
			continue
		}
		docs = append(docs, store.Document{ID: id, Fields: cloneFields(fields)})
	}
	sortDocs(docs, q.Orders)
	return store.Snapshot{Docs: docs}
}

func matches(fields map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		if f.Op != "==" {
			return false
		}
		if fmt.Sprint(fields[f.Field]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func sortDocs(docs []store.Document, orders []store.Order) {
	if len(orders) == 0 {
		// Deterministic fallback so repeated snapshots of an unordered
		// query do not flap.
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			c := compareValues(docs[i].Fields[o.Field], docs[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Dir == store.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	if at, aok := timeutil.Coerce(a); aok {
		if bt, bok := timeutil.Coerce(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if an, aok := toFloat(a); aok {
		if bn, bok := toFloat(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneFields(fields map[string]any) map[string]any {
	clone := make(map[string]any, len(fields))
	for k, v := range fields {
		clone[k] = v
	}
	return clone
}
