// Package bbolt provides a BBolt-backed user repository.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmcleod/gatehouse/storage"
	"go.etcd.io/bbolt"
)

var (
	usersBucket   = []byte("users")
	byEmailBucket = []byte("users_by_email")
)

// Store implements storage.UserRepository backed by a BBolt database.
//
// Users are kept as JSON under an 8-byte big-endian id key. A second bucket
// maps the lowercased email key to that id.
type Store struct {
	db *bbolt.DB
	// update runs fn in a read-write transaction and commits it.
	update func(fn func(*bbolt.Tx) error) error
}

var _ storage.UserRepository = (*Store)(nil)

// NewRepository returns a Store backed by the given BBolt database. Buckets
// are created on first write.
func NewRepository(db *bbolt.DB) *Store {
	return &Store{db: db, update: db.Update}
}

// NewRepositoryFromFile opens a BBolt database at the given path and returns a new Store.
func NewRepositoryFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewRepository(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func getUser(tx *bbolt.Tx, id int64) (*storage.User, error) {
	b := tx.Bucket(usersBucket)
	if b == nil {
		return nil, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	data := b.Get(idKey(id))
	if data == nil {
		return nil, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	var u storage.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decoding user %d: %w", id, err)
	}
	return &u, nil
}

func putUser(tx *bbolt.Tx, u *storage.User) error {
	b, err := tx.CreateBucketIfNotExists(usersBucket)
	if err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return b.Put(idKey(u.ID), data)
}

func (s *Store) GetByEmail(_ context.Context, email string) (*storage.User, error) {
	var user *storage.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(byEmailBucket)
		if idx == nil {
			return fmt.Errorf("email %q: %w", email, storage.ErrNotFound)
		}
		raw := idx.Get([]byte(storage.EmailKey(email)))
		if raw == nil {
			return fmt.Errorf("email %q: %w", email, storage.ErrNotFound)
		}
		u, err := getUser(tx, int64(binary.BigEndian.Uint64(raw)))
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*storage.User, error) {
	var user *storage.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		u, err := getUser(tx, id)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create checks the email index, allocates an id and writes both buckets
// in a single read-write transaction.
func (s *Store) Create(_ context.Context, user *storage.User) error {
	var record storage.User
	err := s.update(func(tx *bbolt.Tx) error {
		idx, err := tx.CreateBucketIfNotExists(byEmailBucket)
		if err != nil {
			return err
		}
		users, err := tx.CreateBucketIfNotExists(usersBucket)
		if err != nil {
			return err
		}
		key := []byte(storage.EmailKey(user.Email))
		if idx.Get(key) != nil {
			return storage.ErrDuplicateEmail
		}
		seq, err := users.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating user id: %w", err)
		}

		record = *user
		record.ID = int64(seq)
		record.Email = storage.NormalizeEmail(user.Email)
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
		if err := putUser(tx, &record); err != nil {
			return err
		}
		if err := idx.Put(key, idKey(record.ID)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Publish the assigned fields only after the commit.
	*user = record
	return nil
}

func (s *Store) UpdateName(_ context.Context, id int64, name string) error {
	return s.modify(id, func(u *storage.User) { u.Name = name })
}

func (s *Store) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return s.modify(id, func(u *storage.User) { u.PasswordHash = passwordHash })
}

func (s *Store) modify(id int64, fn func(*storage.User)) error {
	return s.update(func(tx *bbolt.Tx) error {
		u, err := getUser(tx, id)
		if err != nil {
			return err
		}
		fn(u)
		return putUser(tx, u)
	})
}
