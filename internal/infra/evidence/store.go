// Package evidence stores photo/video evidence metadata in LevelDB,
// content-addressed by SHA-256 digest. The blobs themselves never enter the
// platform; clients upload media elsewhere and submit the digest.
//
// Keys:
//
//	ev:<digest>            → JSON photo record
//	user:<user id>:<digest> → "" (per-user index for prefix scans)
package evidence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// Store is a content-addressed evidence metadata store.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the evidence store at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open evidence store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error { return s.db.Close() }

func evKey(digest string) []byte { return []byte("ev:" + digest) }

func userKey(userID, digest string) []byte {
	return []byte("user:" + userID + ":" + digest)
}

// Submit records new evidence. The digest is the identity: submitting the
// same digest twice returns ErrPhotoDuplicate regardless of submitter.
func (s *Store) Submit(userID, category, digest string, sizeBytes int64, lat, lng float64) (*domain.Photo, error) {
	if ok, err := s.db.Has(evKey(digest), nil); err != nil {
		return nil, fmt.Errorf("check evidence: %w", err)
	} else if ok {
		return nil, domain.ErrPhotoDuplicate
	}

	p := &domain.Photo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Digest:    digest,
		SizeBytes: sizeBytes,
		Status:    domain.PhotoPending,
		Latitude:  lat,
		Longitude: lng,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(evKey(digest), data)
	batch.Put(userKey(userID, digest), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("store evidence: %w", err)
	}
	return p, nil
}

// Get retrieves evidence by digest.
func (s *Store) Get(digest string) (*domain.Photo, error) {
	data, err := s.db.Get(evKey(digest), nil)
	if err == leveldb.ErrNotFound {
		return nil, domain.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	var p domain.Photo
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	return &p, nil
}

// SetStatus moves pending evidence to verified or rejected.
// Reviewed evidence never changes status again, so a verification reward
// cannot be granted twice for the same digest.
func (s *Store) SetStatus(digest string, status domain.PhotoStatus) (*domain.Photo, error) {
	p, err := s.Get(digest)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PhotoPending {
		return nil, domain.ErrPhotoTerminal
	}
	p.Status = status

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	if err := s.db.Put(evKey(p.Digest), data, nil); err != nil {
		return nil, fmt.Errorf("update evidence: %w", err)
	}
	return p, nil
}

// Reopen puts evidence back to pending. Compensation path for a review
// whose side effects failed partway, so the review can be retried.
func (s *Store) Reopen(digest string) error {
	p, err := s.Get(digest)
	if err != nil {
		return err
	}
	p.Status = domain.PhotoPending

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	if err := s.db.Put(evKey(p.Digest), data, nil); err != nil {
		return fmt.Errorf("reopen evidence: %w", err)
	}
	return nil
}

// ListByUser returns all evidence a user has submitted.
func (s *Store) ListByUser(userID string) ([]domain.Photo, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte("user:"+userID+":")), nil)
	defer iter.Release()

	var out []domain.Photo
	for iter.Next() {
		key := string(iter.Key())
		digest := key[len("user:"+userID+":"):]
		p, err := s.Get(digest)
		if err != nil {
			continue
		}
		out = append(out, *p)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}
