package peers

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Ban records why and until when a peer is refused.
type Ban struct {
	Peer    string
	Reason  string // rendered verification error
	Kind    string // verification error kind, empty for manual bans
	Created time.Time
	Until   time.Time
}

// Active reports whether the ban is still in force at now.
func (b *Ban) Active(now time.Time) bool {
	return now.Before(b.Until)
}

// BanList persists bans of misbehaving peers.
type BanList interface {
	// Ban stores b. An existing ban for the same peer is replaced, keeping the
	// later expiry.
	Ban(b *Ban) error

	// Get returns the ban record of peer.
	Get(peer string) (*Ban, error)

	// IsBanned reports whether peer has a ban in force at now.
	IsBanned(peer string, now time.Time) (bool, error)

	// Unban removes the ban record of peer.
	Unban(peer string) error

	// List returns all ban records ordered by peer.
	List() ([]*Ban, error)
}

// MemBanList is an in-memory implementation of BanList.
type MemBanList struct {
	mu   sync.RWMutex
	bans map[string]*Ban
}

// Compile-time interface check.
var _ BanList = (*MemBanList)(nil)

// NewMemBanList creates an empty in-memory ban list.
func NewMemBanList() *MemBanList {
	return &MemBanList{bans: make(map[string]*Ban)}
}

func validateBan(b *Ban) error {
	if b == nil {
		return fmt.Errorf("%w: ban", ErrNilParam)
	}
	if b.Peer == "" {
		return ErrEmptyPeer
	}
	return nil
}

// mergeBan returns the record to store when next replaces prev.
func mergeBan(prev, next *Ban) *Ban {
	merged := *next
	if prev != nil && prev.Until.After(merged.Until) {
		merged.Until = prev.Until
	}
	return &merged
}

// Ban stores b.
func (l *MemBanList) Ban(b *Ban) error {
	if err := validateBan(b); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bans[b.Peer] = mergeBan(l.bans[b.Peer], b)
	return nil
}

// Get returns the ban record of peer.
func (l *MemBanList) Get(peer string) (*Ban, error) {
	if peer == "" {
		return nil, ErrEmptyPeer
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bans[peer]
	if !ok {
		return nil, ErrBanNotFound
	}
	cp := *b
	return &cp, nil
}

// IsBanned reports whether peer has a ban in force at now.
func (l *MemBanList) IsBanned(peer string, now time.Time) (bool, error) {
	if peer == "" {
		return false, ErrEmptyPeer
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bans[peer]
	return ok && b.Active(now), nil
}

// Unban removes the ban record of peer.
func (l *MemBanList) Unban(peer string) error {
	if peer == "" {
		return ErrEmptyPeer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.bans[peer]; !ok {
		return ErrBanNotFound
	}
	delete(l.bans, peer)
	return nil
}

// List returns all ban records ordered by peer.
func (l *MemBanList) List() ([]*Ban, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Ban, 0, len(l.bans))
	for _, b := range l.bans {
		cp := *b
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Peer < result[j].Peer })
	return result, nil
}
