// Package storetest opens an in-memory sqlite database carrying the production
// schema, plus seed helpers shared by the repository and service tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	identitydomain "github.com/jhnmartin/hey-sub000/internal/identity/domain"
	"github.com/jhnmartin/hey-sub000/internal/migration"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// Open returns a fresh database. The pool is pinned to one connection so
// concurrent callers serialize the way row locks would on postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migration.ApplySQLite(context.Background(), sqlDB); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// Node returns a snowflake generator for tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// Seed inserts fixture rows with explicit identifiers.
type Seed struct {
	t    testing.TB
	db   *gorm.DB
	node *snowflake.Node
	now  time.Time
}

func NewSeed(t testing.TB, db *gorm.DB) *Seed {
	return &Seed{t: t, db: db, node: Node(t), now: time.Now().UTC()}
}

func (s *Seed) exec(query string, args ...any) {
	s.t.Helper()
	if err := s.db.Exec(query, args...).Error; err != nil {
		s.t.Fatalf("seed: %v", err)
	}
}

func (s *Seed) Buyer(name, email string) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	s.exec(`INSERT INTO buyers (id, display_name, email, created_at) VALUES (?, ?, ?, ?)`,
		id, name, email, s.now)
	return id
}

// Session stores a session for buyerID and returns the raw bearer token.
func (s *Seed) Session(buyerID snowflake.ID, ttl time.Duration) string {
	s.t.Helper()
	token := "tok_" + s.node.Generate().String()
	s.exec(`INSERT INTO buyer_sessions (id, buyer_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.node.Generate(), buyerID, HashToken(token), s.now.Add(ttl), s.now)
	return token
}

func (s *Seed) Event(name, mode string) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	s.exec(`INSERT INTO events (id, name, ticketing_mode, starts_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, mode, s.now.Add(72*time.Hour), s.now, s.now)
	return id
}

func (s *Seed) Tier(eventID snowflake.ID, name string, unitPrice, quantity, sold int64) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	status := "active"
	if sold >= quantity {
		status = "sold_out"
	}
	s.exec(`INSERT INTO ticket_tiers (id, event_id, name, unit_price, quantity, sold, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, eventID, name, unitPrice, quantity, sold, status, s.now, s.now)
	return id
}

// Count returns the number of rows in table matching where.
func Count(t testing.TB, db *gorm.DB, table, where string, args ...any) int64 {
	t.Helper()
	var count int64
	query := "SELECT COUNT(1) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

// Sold reads the sold counter of a tier.
func Sold(t testing.TB, db *gorm.DB, tierID snowflake.ID) int64 {
	t.Helper()
	var sold int64
	if err := db.Raw(`SELECT sold FROM ticket_tiers WHERE id = ?`, tierID).Scan(&sold).Error; err != nil {
		t.Fatalf("read sold: %v", err)
	}
	return sold
}

// HashToken matches the digest the identity repository looks sessions up by.
func HashToken(token string) string {
	return identitydomain.HashToken(token)
}
