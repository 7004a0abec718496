// Package firestore adapts Cloud Firestore to the engine's store boundary.
// Collection watches are backed by query snapshot listeners, so subscribers
// see the same full-result-set emission model the memory store provides.
package firestore

import (
	"context"
	"fmt"
	"log"
	"sync"

	cf "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/DonyChristie/crux/internal/config"
	"github.com/DonyChristie/crux/internal/store"
)

type Store struct {
	client *cf.Client
}

// Connect initializes the Firebase app and opens its Firestore client.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open firestore client: %w", err)
	}

	log.Println("[Firestore] Connected to project", cfg.FirebaseProjectID)
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Watch(ctx context.Context, collection string, q store.Query, onSnapshot func(store.Snapshot), onError func(error)) store.DisposeFunc {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := s.buildQuery(collection, q).Snapshots(watchCtx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || watchCtx.Err() != nil {
					return
				}
				log.Printf("[Firestore] Watch on %s failed: %v", collection, err)
				onError(err)
				return
			}
			docs, err := collectDocs(snap)
			if err != nil {
				log.Printf("[Firestore] Watch on %s failed reading documents: %v", collection, err)
				onError(err)
				return
			}
			onSnapshot(store.Snapshot{Docs: docs})
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}

func collectDocs(snap *cf.QuerySnapshot) ([]store.Document, error) {
	var docs []store.Document
	for {
		doc, err := snap.Documents.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, store.Document{ID: doc.Ref.ID, Fields: doc.Data()})
	}
}

func (s *Store) Get(ctx context.Context, path string) (store.Document, bool, error) {
	doc, err := s.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Document{}, false, nil
	}
	if err != nil {
		return store.Document{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return store.Document{ID: doc.Ref.ID, Fields: doc.Data()}, true, nil
}

func (s *Store) buildQuery(collection string, q store.Query) cf.Query {
	query := s.client.Collection(collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, f.Op, f.Value)
	}
	for _, o := range q.Orders {
		dir := cf.Asc
		if o.Dir == store.Desc {
			dir = cf.Desc
		}
		query = query.OrderBy(o.Field, dir)
	}
	return query
}

func (s *Store) List(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	iter := s.buildQuery(collection, q).Documents(ctx)
	defer iter.Stop()

	var docs []store.Document
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", collection, err)
		}
		docs = append(docs, store.Document{ID: doc.Ref.ID, Fields: doc.Data()})
	}
}

func (s *Store) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	var opts []cf.SetOption
	if merge {
		opts = append(opts, cf.MergeAll)
	}
	if _, err := s.client.Doc(path).Set(ctx, translate(fields), opts...); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, translate(fields))
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// translate maps the engine's server-timestamp sentinel onto Firestore's.
func translate(fields map[string]any) map[string]any {
	translated := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == any(store.ServerTimestamp) {
			translated[k] = cf.ServerTimestamp
			continue
		}
		translated[k] = v
	}
	return translated
}
