package domain

import "context"

// Record is a flat, loosely typed document as held by the listing store.
type Record map[string]any

// AnyRevision disables the revision precondition of Store.Update
const AnyRevision int64 = 0

// Document is one stored record with the collection revision of its last change
type Document struct {
	ID       string
	Revision int64
	Fields   Record
}

// Snapshot is the full collection as of Revision
type Snapshot struct {
	Revision  int64
	Documents []Document
}

// Store is the remote document collection holding listings.
//
// Implementations return ErrNotFound for missing documents and ErrConflict when
// Update's expected revision no longer matches. Revisions are collection-wide and
// strictly increasing; deletes advance the revision too.
type Store interface {
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
	List(ctx context.Context) (Snapshot, error)
	Get(ctx context.Context, id string) (Document, error)
	Set(ctx context.Context, id string, fields Record) (Document, error)
	Update(ctx context.Context, id string, fields Record, expectedRevision int64) (Document, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// Identity is the opaque current user as supplied by the identity provider
type Identity struct {
	ID          string
	DisplayName string
}

// IdentityProvider supplies the current user identity
type IdentityProvider interface {
	CurrentUserIdentity(ctx context.Context) (Identity, bool)
}
