package catalog

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mugo_plumbing_backend/internal/common"
)

type priceRangeDoc struct {
	Min float64 `firestore:"min"`
	Max float64 `firestore:"max"`
}

// Doc is the stored shape of a catalog document.
type Doc struct {
	Name        string        `firestore:"name"`
	Description string        `firestore:"description"`
	Category    string        `firestore:"category"`
	PriceRange  priceRangeDoc `firestore:"priceRange"`
	IsActive    bool          `firestore:"isActive"`
}

func newDoc(e *Entry) *Doc {
	return &Doc{
		Name:        e.Name,
		Description: e.Description,
		Category:    e.Category,
		PriceRange:  priceRangeDoc{Min: e.PriceRange.Min, Max: e.PriceRange.Max},
		IsActive:    e.IsActive,
	}
}

// ToDomain validates the document and maps it to a catalog entry.
func (d *Doc) ToDomain(id string) (*Entry, error) {
	if d.Name == "" {
		return nil, common.MalformedDocument(CollectionName, id, "missing name")
	}
	if d.PriceRange.Min < 0 || d.PriceRange.Max < d.PriceRange.Min {
		return nil, common.MalformedDocument(CollectionName, id, "invalid priceRange")
	}
	return &Entry{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		PriceRange:  PriceRange{Min: d.PriceRange.Min, Max: d.PriceRange.Max},
		IsActive:    d.IsActive,
	}, nil
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a catalog repository on the services collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) Create(ctx context.Context, e *Entry) error {
	_, err := r.client.Collection(CollectionName).Doc(e.ID).Create(ctx, newDoc(e))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return common.ErrConflict.WithDetails("Service with this id already exists.")
		}
		return common.RemoteFailure("create service", err)
	}
	return nil
}

func (r *firestoreRepository) Upsert(ctx context.Context, e *Entry) error {
	if _, err := r.client.Collection(CollectionName).Doc(e.ID).Set(ctx, newDoc(e)); err != nil {
		return common.RemoteFailure("upsert service", err)
	}
	return nil
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*Entry, error) {
	snap, err := r.client.Collection(CollectionName).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("Service not found.")
		}
		return nil, common.RemoteFailure("get service", err)
	}
	var d Doc
	if err := snap.DataTo(&d); err != nil {
		return nil, common.MalformedDocument(CollectionName, id, err.Error())
	}
	return d.ToDomain(id)
}

func (r *firestoreRepository) ListActive(ctx context.Context) ([]Entry, error) {
	iter := r.client.Collection(CollectionName).Where("isActive", "==", true).Documents(ctx)
	defer iter.Stop()

	var entries []Entry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, common.RemoteFailure("list services", err)
		}
		var d Doc
		if err := snap.DataTo(&d); err != nil {
			return nil, common.MalformedDocument(CollectionName, snap.Ref.ID, err.Error())
		}
		e, err := d.ToDomain(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	// No orderBy on the query, so no composite index is needed.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (r *firestoreRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.client.Collection(CollectionName).Doc(id).Update(ctx, []firestore.Update{{Path: "isActive", Value: active}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return common.ErrNotFound.WithDetails("Service not found.")
		}
		return common.RemoteFailure("update service", err)
	}
	return nil
}
