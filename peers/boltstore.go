package peers

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketBans = []byte("bans")

// BoltStore wraps a bbolt database holding peer records.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("peers: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("peers: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBans); err != nil {
			return fmt.Errorf("peers: create bucket %q: %w", bucketBans, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Bans returns a BanList backed by this database.
func (s *BoltStore) Bans() *BoltBanList { return &BoltBanList{db: s.db} }

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// BoltBanList persists bans in bbolt, keyed by peer id.
type BoltBanList struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ BanList = (*BoltBanList)(nil)

// Ban stores b, keeping the later expiry of an existing record.
func (l *BoltBanList) Ban(b *Ban) error {
	if err := validateBan(b); err != nil {
		return err
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBans)
		key := []byte(b.Peer)

		var prev *Ban
		if data := bucket.Get(key); data != nil {
			prev = &Ban{}
			if err := decodeGob(data, prev); err != nil {
				return fmt.Errorf("peers: decode ban %q: %w", b.Peer, err)
			}
		}

		data, err := encodeGob(mergeBan(prev, b))
		if err != nil {
			return fmt.Errorf("peers: encode ban %q: %w", b.Peer, err)
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("peers: put ban %q: %w", b.Peer, err)
		}
		return nil
	})
}

// Get returns the ban record of peer.
func (l *BoltBanList) Get(peer string) (*Ban, error) {
	if peer == "" {
		return nil, ErrEmptyPeer
	}

	var ban Ban
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketBans).Get([]byte(peer))
		if data == nil {
			return ErrBanNotFound
		}
		if err := decodeGob(data, &ban); err != nil {
			return fmt.Errorf("peers: decode ban %q: %w", peer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

// IsBanned reports whether peer has a ban in force at now.
func (l *BoltBanList) IsBanned(peer string, now time.Time) (bool, error) {
	ban, err := l.Get(peer)
	if errors.Is(err, ErrBanNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ban.Active(now), nil
}

// Unban removes the ban record of peer.
func (l *BoltBanList) Unban(peer string) error {
	if peer == "" {
		return ErrEmptyPeer
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBans)
		if bucket.Get([]byte(peer)) == nil {
			return ErrBanNotFound
		}
		if err := bucket.Delete([]byte(peer)); err != nil {
			return fmt.Errorf("peers: delete ban %q: %w", peer, err)
		}
		return nil
	})
}

// List returns all ban records ordered by peer.
func (l *BoltBanList) List() ([]*Ban, error) {
	var bans []*Ban
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBans).ForEach(func(k, v []byte) error {
			var ban Ban
			if err := decodeGob(v, &ban); err != nil {
				return fmt.Errorf("peers: decode ban %q: %w", k, err)
			}
			bans = append(bans, &ban)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bans, nil
}
