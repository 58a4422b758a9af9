package booking

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/provider"
)

// Doc is the stored shape of a booking document.
type Doc struct {
	ClientID      string    `firestore:"clientId"`
	ProviderID    *string   `firestore:"providerId"`
	ServiceID     string    `firestore:"serviceId"`
	ServiceName   string    `firestore:"serviceName"`
	Description   string    `firestore:"description"`
	Location      string    `firestore:"location"`
	Budget        float64   `firestore:"budget"`
	Urgency       string    `firestore:"urgency"`
	Status        string    `firestore:"status"`
	ScheduledDate time.Time `firestore:"scheduledDate"`
	Rating        *float64  `firestore:"rating"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// NewDoc maps a booking to its document.
func NewDoc(b *Booking) *Doc {
	return &Doc{
		ClientID:      b.ClientID,
		ProviderID:    b.ProviderID,
		ServiceID:     b.ServiceID,
		ServiceName:   b.ServiceName,
		Description:   b.Description,
		Location:      b.Location,
		Budget:        b.Budget,
		Urgency:       string(b.Urgency),
		Status:        string(b.Status),
		ScheduledDate: b.ScheduledDate,
		Rating:        b.Rating,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// ToDomain validates the document and maps it to a booking. Documents written before
// urgency existed read as normal.
func (d *Doc) ToDomain(id string) (*Booking, error) {
	if d.ClientID == "" {
		return nil, common.MalformedDocument(CollectionName, id, "missing clientId")
	}
	if d.ServiceID == "" {
		return nil, common.MalformedDocument(CollectionName, id, "missing serviceId")
	}
	urgency := Urgency(d.Urgency)
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if !urgency.Valid() {
		return nil, common.MalformedDocument(CollectionName, id, "unknown urgency "+d.Urgency)
	}
	b := &Booking{
		ID:            id,
		ClientID:      d.ClientID,
		ProviderID:    d.ProviderID,
		ServiceID:     d.ServiceID,
		ServiceName:   d.ServiceName,
		Description:   d.Description,
		Location:      d.Location,
		Budget:        d.Budget,
		Urgency:       urgency,
		Status:        Status(d.Status),
		ScheduledDate: d.ScheduledDate,
		Rating:        d.Rating,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if err := b.Validate(); err != nil {
		return nil, common.MalformedDocument(CollectionName, id, err.Error())
	}
	return b, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*Booking, error) {
	var d Doc
	if err := snap.DataTo(&d); err != nil {
		return nil, common.MalformedDocument(CollectionName, snap.Ref.ID, err.Error())
	}
	return d.ToDomain(snap.Ref.ID)
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a booking repository on the bookings collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionName)
}

func (r *firestoreRepository) Create(ctx context.Context, b *Booking) error {
	if _, err := r.collection().Doc(b.ID).Create(ctx, NewDoc(b)); err != nil {
		return common.RemoteFailure("create booking", err)
	}
	return nil
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*Booking, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("Booking not found.")
		}
		return nil, common.RemoteFailure("get booking", err)
	}
	return fromSnapshot(snap)
}

func (r *firestoreRepository) ListByClient(ctx context.Context, clientID string) ([]Booking, error) {
	q := r.collection().Where("clientId", "==", clientID).OrderBy("createdAt", firestore.Desc)
	return collect(q.Documents(ctx), "list client bookings")
}

func (r *firestoreRepository) ListByProvider(ctx context.Context, providerID string) ([]Booking, error) {
	q := r.collection().Where("providerId", "==", providerID).OrderBy("createdAt", firestore.Desc)
	return collect(q.Documents(ctx), "list provider bookings")
}

func (r *firestoreRepository) ListPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	q := r.collection().
		Where("status", "==", string(StatusPending)).
		Where("scheduledDate", "<", cutoff).
		OrderBy("scheduledDate", firestore.Asc)
	return collect(q.Documents(ctx), "list stale bookings")
}

// Mutate runs fn in a Firestore transaction. The booking read is part of the
// transaction's read set, so a concurrent write forces a retry that sees the new status.
func (r *firestoreRepository) Mutate(ctx context.Context, id string, fn Mutation) (*Booking, error) {
	ref := r.collection().Doc(id)
	var out *Booking
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return common.ErrNotFound.WithDetails("Booking not found.")
			}
			return common.RemoteFailure("get booking", err)
		}
		b, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		store := &firestoreProviderStore{client: r.client, tx: tx}
		if err := fn(ctx, b, store); err != nil {
			return err
		}
		if err := b.Validate(); err != nil {
			return common.MalformedDocument(CollectionName, id, err.Error())
		}
		if err := tx.Set(ref, NewDoc(b)); err != nil {
			return common.RemoteFailure("update booking", err)
		}
		out = b
		return nil
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		return nil, common.RemoteFailure("booking transaction", err)
	}
	return out, nil
}

// firestoreProviderStore reads before it writes, as Firestore transactions require.
type firestoreProviderStore struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (s *firestoreProviderStore) Get(_ context.Context, id string) (*provider.Provider, error) {
	snap, err := s.tx.Get(s.client.Collection(provider.CollectionName).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("Provider not found.")
		}
		return nil, common.RemoteFailure("get provider", err)
	}
	return provider.FromSnapshot(snap)
}

func (s *firestoreProviderStore) Save(_ context.Context, p *provider.Provider) error {
	if err := s.tx.Set(s.client.Collection(provider.CollectionName).Doc(p.ID), provider.NewDoc(p)); err != nil {
		return common.RemoteFailure("save provider", err)
	}
	return nil
}

func collect(iter *firestore.DocumentIterator, op string) ([]Booking, error) {
	defer iter.Stop()
	var out []Booking
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, common.RemoteFailure(op, err)
		}
		b, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
}
