// README: Offer repository backed by Firestore single-document transactions.
package offer

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rideline/internal/types"
)

type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) doc(id types.ID) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(string(id))
}

// Create writes a new ride document; it fails if the id already exists.
func (s *FirestoreStore) Create(ctx context.Context, o *Offer) error {
	_, err := s.doc(o.ID).Create(ctx, o)
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*Offer, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride %s: %w", id, err)
	}
	return decodeSnapshot(id, snap)
}

// Transact reads, checks and writes the ride inside RunTransaction. Firestore
// may call the closure more than once under contention; each attempt starts
// from a fresh snapshot so fn always judges the latest committed state.
func (s *FirestoreStore) Transact(ctx context.Context, id types.ID, fn func(o *Offer) error) (*Offer, error) {
	ref := s.doc(id)
	var committed *Offer
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("tx get ride %s: %w", id, err)
		}
		cur, err := decodeSnapshot(id, snap)
		if err != nil {
			return err
		}
		work := cur.Clone()
		if err := fn(work); err != nil {
			return err
		}
		committed = work

		changes, appended := Changes(cur, work)
		if len(changes) == 0 && len(appended) == 0 {
			return nil
		}
		updates := make([]firestore.Update, 0, len(changes)+1)
		for _, c := range changes {
			updates = append(updates, firestore.Update{Path: c.Field, Value: c.Value})
		}
		if len(appended) > 0 {
			vals := make([]interface{}, len(appended))
			for i, d := range appended {
				vals[i] = string(d)
			}
			updates = append(updates, firestore.Update{Path: "declined_driver_ids", Value: firestore.ArrayUnion(vals...)})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func decodeSnapshot(id types.ID, snap *firestore.DocumentSnapshot) (*Offer, error) {
	var o Offer
	if err := snap.DataTo(&o); err != nil {
		return nil, fmt.Errorf("decode ride %s: %w", id, err)
	}
	o.ID = id
	return &o, nil
}
