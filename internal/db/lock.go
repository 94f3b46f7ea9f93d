package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrLockNotHeld = errors.New("advisory lock was not held by this session")

// Lock is a session advisory lock. Postgres ties it to the connection that
// took it, so the connection stays pinned until Release.
type Lock struct {
	conn *sql.Conn
	key  string
}

// TryAcquireLock takes a session advisory lock without blocking. It returns
// nil when another session holds the lock or the query fails.
func TryAcquireLock(ctx context.Context, d *gorm.DB, key string) *Lock {
	sqlDB, err := d.DB()
	if err != nil {
		return nil
	}
	return tryLock(ctx, sqlDB, key)
}

func tryLock(ctx context.Context, sqlDB *sql.DB, key string) *Lock {
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil || !ok {
		_ = conn.Close()
		return nil
	}
	return &Lock{conn: conn, key: key}
}

// Release unlocks on the pinned connection and returns it to the pool. When
// the unlock fails the connection is discarded, which ends the session and
// its locks.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	var released bool
	err := l.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, l.key).Scan(&released)
	if err == nil && !released {
		err = ErrLockNotHeld
	}
	if err != nil {
		_ = l.conn.Raw(func(any) error { return driver.ErrBadConn })
		_ = l.conn.Close()
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return l.conn.Close()
}
