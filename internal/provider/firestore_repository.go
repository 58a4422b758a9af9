package provider

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mugo_plumbing_backend/internal/common"
)

// Doc is the stored shape of a provider document.
type Doc struct {
	UserID      string    `firestore:"userId"`
	Services    []string  `firestore:"services"`
	Location    string    `firestore:"location"`
	Rating      float64   `firestore:"rating"`
	TotalJobs   int64     `firestore:"totalJobs"`
	IsAvailable bool      `firestore:"isAvailable"`
	IsApproved  bool      `firestore:"isApproved"`
	HourlyRate  float64   `firestore:"hourlyRate"`
	Bio         *string   `firestore:"bio,omitempty"`
	Documents   []string  `firestore:"documents,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// NewDoc maps a provider to its document.
func NewDoc(p *Provider) *Doc {
	services := []string(p.Services)
	if services == nil {
		services = []string{}
	}
	return &Doc{
		UserID:      p.UserID,
		Services:    services,
		Location:    p.Location,
		Rating:      p.Rating,
		TotalJobs:   int64(p.TotalJobs),
		IsAvailable: p.IsAvailable,
		IsApproved:  p.IsApproved,
		HourlyRate:  p.HourlyRate,
		Bio:         p.Bio,
		Documents:   []string(p.Documents),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToDomain validates the document and maps it to a provider.
func (d *Doc) ToDomain(id string) (*Provider, error) {
	if d.UserID == "" {
		return nil, common.MalformedDocument(CollectionName, id, "missing userId")
	}
	if d.Rating < 0 || d.Rating > 5 {
		return nil, common.MalformedDocument(CollectionName, id, fmt.Sprintf("rating %v out of range", d.Rating))
	}
	if d.TotalJobs < 0 {
		return nil, common.MalformedDocument(CollectionName, id, "negative totalJobs")
	}
	return &Provider{
		ID:          id,
		UserID:      d.UserID,
		Services:    common.StringList(d.Services),
		Location:    d.Location,
		Rating:      d.Rating,
		TotalJobs:   int(d.TotalJobs),
		IsAvailable: d.IsAvailable,
		IsApproved:  d.IsApproved,
		HourlyRate:  d.HourlyRate,
		Bio:         d.Bio,
		Documents:   common.StringList(d.Documents),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// FromSnapshot decodes and validates a provider snapshot.
func FromSnapshot(snap *firestore.DocumentSnapshot) (*Provider, error) {
	var d Doc
	if err := snap.DataTo(&d); err != nil {
		return nil, common.MalformedDocument(CollectionName, snap.Ref.ID, err.Error())
	}
	return d.ToDomain(snap.Ref.ID)
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a provider repository on the providers collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(CollectionName).Doc(id)
}

func (r *firestoreRepository) Create(ctx context.Context, p *Provider) error {
	if _, err := r.doc(p.ID).Create(ctx, NewDoc(p)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return common.ErrConflict.WithDetails("Provider already exists for this user.")
		}
		return common.RemoteFailure("create provider", err)
	}
	return nil
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*Provider, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("Provider not found.")
		}
		return nil, common.RemoteFailure("get provider", err)
	}
	return FromSnapshot(snap)
}

func (r *firestoreRepository) Update(ctx context.Context, id string, patch Patch) (*Provider, error) {
	updates := []firestore.Update{{Path: "updatedAt", Value: patch.UpdatedAt}}
	if patch.Services != nil {
		updates = append(updates, firestore.Update{Path: "services", Value: patch.Services})
	}
	if patch.Location != nil {
		updates = append(updates, firestore.Update{Path: "location", Value: *patch.Location})
	}
	if patch.HourlyRate != nil {
		updates = append(updates, firestore.Update{Path: "hourlyRate", Value: *patch.HourlyRate})
	}
	if patch.Bio != nil {
		updates = append(updates, firestore.Update{Path: "bio", Value: *patch.Bio})
	}
	if patch.IsAvailable != nil {
		updates = append(updates, firestore.Update{Path: "isAvailable", Value: *patch.IsAvailable})
	}
	if patch.IsApproved != nil {
		updates = append(updates, firestore.Update{Path: "isApproved", Value: *patch.IsApproved})
	}
	if patch.AppendDocument != nil {
		updates = append(updates, firestore.Update{Path: "documents", Value: firestore.ArrayUnion(*patch.AppendDocument)})
	}

	if _, err := r.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("Provider not found.")
		}
		return nil, common.RemoteFailure("update provider", err)
	}
	return r.FindByID(ctx, id)
}

func (r *firestoreRepository) FindAvailable(ctx context.Context, serviceID string, limit int) ([]Provider, error) {
	q := r.client.Collection(CollectionName).
		Where("services", "array-contains", serviceID).
		Where("isAvailable", "==", true).
		Where("isApproved", "==", true).
		OrderBy("rating", firestore.Desc).
		Limit(limit)
	return collect(q.Documents(ctx), "find available providers")
}

func (r *firestoreRepository) ListPending(ctx context.Context) ([]Provider, error) {
	q := r.client.Collection(CollectionName).
		Where("isApproved", "==", false).
		OrderBy("createdAt", firestore.Desc)
	return collect(q.Documents(ctx), "list pending providers")
}

func (r *firestoreRepository) ListAll(ctx context.Context) ([]Provider, error) {
	return collect(r.client.Collection(CollectionName).Documents(ctx), "list providers")
}

func collect(iter *firestore.DocumentIterator, op string) ([]Provider, error) {
	defer iter.Stop()
	var out []Provider
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, common.RemoteFailure(op, err)
		}
		p, err := FromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
}
