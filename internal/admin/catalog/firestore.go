package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/oklog/ulid/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/catalog-admin/internal/admin/restapi"
)

const (
	DefaultProductsCollection   = "products"
	DefaultCategoriesCollection = "categories"
)

// FirestoreStore persists entities as documents in a single Firestore collection.
type FirestoreStore[T any] struct {
	client     *firestore.Client
	collection string
	acc        Accessor[T]
}

// NewFirestoreStore constructs a Firestore-backed store.
func NewFirestoreStore[T any](client *firestore.Client, collection string, acc Accessor[T]) *FirestoreStore[T] {
	if client == nil {
		panic("catalog: firestore client is required")
	}
	if strings.TrimSpace(collection) == "" {
		panic("catalog: firestore collection is required")
	}
	return &FirestoreStore[T]{client: client, collection: collection, acc: acc}
}

// NewFirestoreProducts returns a ProductService stored in Firestore.
func NewFirestoreProducts(client *firestore.Client, collection string, opts ...Option) *Products {
	if collection == "" {
		collection = DefaultProductsCollection
	}
	return NewProducts(NewFirestoreStore(client, collection, ProductAccessor), opts...)
}

// NewFirestoreCategories returns a CategoryService stored in Firestore.
func NewFirestoreCategories(client *firestore.Client, collection string, opts ...Option) *Categories {
	if collection == "" {
		collection = DefaultCategoriesCollection
	}
	return NewCategories(NewFirestoreStore(client, collection, CategoryAccessor), opts...)
}

func (s *FirestoreStore[T]) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// All reads every document in the collection.
func (s *FirestoreStore[T]) All(ctx context.Context) ([]T, error) {
	return s.collect(s.coll().Documents(ctx))
}

// Page orders, offsets and limits the collection; the total comes from a count aggregation.
func (s *FirestoreStore[T]) Page(ctx context.Context, q restapi.PageQuery) (restapi.PageResult[T], error) {
	query := s.coll().Query
	if field := strings.TrimSpace(q.SortBy); field != "" {
		if _, ok := s.acc.Fields[field]; ok {
			dir := firestore.Asc
			if strings.EqualFold(q.Order, "desc") {
				dir = firestore.Desc
			}
			query = query.OrderBy(field, dir)
		}
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	if q.Limit > 0 {
		query = query.Offset((page - 1) * q.Limit).Limit(q.Limit)
	}

	items, err := s.collect(query.Documents(ctx))
	if err != nil {
		return restapi.PageResult[T]{}, err
	}

	total, err := s.count(ctx)
	if err != nil {
		return restapi.PageResult[T]{}, err
	}
	return restapi.PageResult[T]{Items: items, TotalItems: total}, nil
}

// Search has no server-side index to lean on, so it filters the full collection.
func (s *FirestoreStore[T]) Search(ctx context.Context, query string) ([]T, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, item := range all {
		if s.acc.Matches(item, query) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Get loads one document.
func (s *FirestoreStore[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	snap, err := s.coll().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return item, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return item, fmt.Errorf("catalog: firestore get %s/%s: %w", s.collection, id, err)
	}
	if err := snap.DataTo(&item); err != nil {
		return item, fmt.Errorf("catalog: decode %s/%s: %w", s.collection, id, err)
	}
	return s.acc.WithID(item, snap.Ref.ID), nil
}

// Create writes a new document under a generated ULID.
func (s *FirestoreStore[T]) Create(ctx context.Context, item T) (T, error) {
	id := strings.TrimSpace(s.acc.ID(item))
	if id == "" {
		id = ulid.Make().String()
	}
	if _, err := s.coll().Doc(id).Create(ctx, item); err != nil {
		var zero T
		return zero, fmt.Errorf("catalog: firestore create %s: %w", s.collection, err)
	}
	return s.acc.WithID(item, id), nil
}

// Update overwrites an existing document.
func (s *FirestoreStore[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	ref := s.coll().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, item)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return zero, fmt.Errorf("catalog: firestore update %s/%s: %w", s.collection, id, err)
	}
	return s.acc.WithID(item, id), nil
}

// Delete removes a document; deleting a missing document is reported as not found.
func (s *FirestoreStore[T]) Delete(ctx context.Context, id string) error {
	ref := s.coll().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("catalog: firestore delete %s/%s: %w", s.collection, id, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("catalog: firestore delete %s/%s: %w", s.collection, id, err)
	}
	return nil
}

func (s *FirestoreStore[T]) collect(iter *firestore.DocumentIterator) ([]T, error) {
	defer iter.Stop()
	var out []T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: firestore query %s: %w", s.collection, err)
		}
		var item T
		if err := snap.DataTo(&item); err != nil {
			return nil, fmt.Errorf("catalog: decode %s/%s: %w", s.collection, snap.Ref.ID, err)
		}
		out = append(out, s.acc.WithID(item, snap.Ref.ID))
	}
	return out, nil
}

func (s *FirestoreStore[T]) count(ctx context.Context) (int, error) {
	res, err := s.coll().NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: firestore count %s: %w", s.collection, err)
	}
	raw, ok := res["all"]
	if !ok {
		return 0, fmt.Errorf("catalog: firestore count %s: missing aggregate", s.collection)
	}
	v, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("catalog: firestore count %s: unexpected aggregate %T", s.collection, raw)
	}
	return int(v.GetIntegerValue()), nil
}
