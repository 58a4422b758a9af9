package user

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/shared"
)

// Doc is the stored shape of a profile document.
type Doc struct {
	Email        string    `firestore:"email"`
	DisplayName  string    `firestore:"displayName"`
	UserType     string    `firestore:"userType"`
	Phone        *string   `firestore:"phone,omitempty"`
	Location     *string   `firestore:"location,omitempty"`
	BusinessName *string   `firestore:"businessName,omitempty"`
	ServiceArea  *string   `firestore:"serviceArea,omitempty"`
	Experience   *string   `firestore:"experience,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// NewDoc maps a profile to its document.
func NewDoc(u *User) *Doc {
	return &Doc{
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		UserType:     string(u.Role),
		Phone:        u.Phone,
		Location:     u.Location,
		BusinessName: u.BusinessName,
		ServiceArea:  u.ServiceArea,
		Experience:   u.Experience,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ToDomain validates the document and maps it to a profile.
func (d *Doc) ToDomain(id string) (*User, error) {
	if d.Email == "" {
		return nil, common.MalformedDocument(CollectionName, id, "missing email")
	}
	role := shared.Role(d.UserType)
	if !role.Valid() {
		return nil, common.MalformedDocument(CollectionName, id, fmt.Sprintf("unknown userType %q", d.UserType))
	}
	if d.CreatedAt.IsZero() {
		return nil, common.MalformedDocument(CollectionName, id, "missing createdAt")
	}
	return &User{
		ID:           id,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		Role:         role,
		Phone:        d.Phone,
		Location:     d.Location,
		BusinessName: d.BusinessName,
		ServiceArea:  d.ServiceArea,
		Experience:   d.Experience,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a profile repository on the users collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*User, error) {
	snap, err := r.client.Collection(CollectionName).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, common.RemoteFailure("get user", err)
	}
	var d Doc
	if err := snap.DataTo(&d); err != nil {
		return nil, common.MalformedDocument(CollectionName, id, err.Error())
	}
	return d.ToDomain(id)
}

func (r *firestoreRepository) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	updates := []firestore.Update{{Path: "updatedAt", Value: patch.UpdatedAt}}
	add := func(path string, v *string) {
		if v != nil {
			updates = append(updates, firestore.Update{Path: path, Value: *v})
		}
	}
	add("displayName", patch.DisplayName)
	add("phone", patch.Phone)
	add("location", patch.Location)
	add("businessName", patch.BusinessName)
	add("serviceArea", patch.ServiceArea)
	add("experience", patch.Experience)

	if _, err := r.client.Collection(CollectionName).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, common.RemoteFailure("update user", err)
	}
	return r.FindByID(ctx, id)
}
