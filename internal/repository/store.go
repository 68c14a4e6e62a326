package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store hands out sessions backed by the shared connection pool.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Acquire pins a dedicated connection for one worker. The worker owns the
// session for the duration of its job and must Close it on every exit path;
// nothing else shares the connection in between.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return &Session{conn: conn, ctx: ctx}, nil
}

// Session is one worker's private view of the database.
type Session struct {
	conn *sql.Conn
	ctx  context.Context
}

// Close returns the underlying connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}
