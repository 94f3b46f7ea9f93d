package pockets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/poverty-pockets/pockets-backend/internal/db"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"gorm.io/gorm"
)

// reloadLockKey dedupes reloads across instances sharing a database.
const reloadLockKey = "pockets:reload"

var (
	ErrNotLoaded        = errors.New("data not loaded yet")
	ErrReloadInProgress = errors.New("reload already in progress")
)

// Service holds the current snapshot.
type Service struct {
	loader  *Loader
	db      *gorm.DB
	current atomic.Pointer[Snapshot]

	reloading sync.Mutex
}

// NewService creates a service around loader. d is optional and only used
// for the cross-instance reload lock.
func NewService(loader *Loader, d *gorm.DB) *Service {
	return &Service{loader: loader, db: d}
}

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload builds a new snapshot and swaps it in. Readers keep whatever
// snapshot they already hold. A failed reload keeps the previous snapshot.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	if !s.reloading.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer s.reloading.Unlock()

	if s.db != nil {
		lock := db.TryAcquireLock(ctx, s.db, reloadLockKey)
		if lock == nil {
			return nil, ErrReloadInProgress
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logging.LogError("reload", "release lock", err)
			}
		}()
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}
