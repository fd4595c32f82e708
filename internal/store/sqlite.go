// Package store provides record sink implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/NelliaS/junior.guru/internal/club"
)

// SQLite persists crawled records into a local SQLite file using the pure
// Go modernc.org/sqlite driver.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database file and runs the idempotent migration.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection sidesteps SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS club_messages (
            id TEXT PRIMARY KEY,
            url TEXT,
            content TEXT,
            author_id TEXT,
            channel_id TEXT,
            channel_name TEXT,
            channel_mention TEXT,
            type TEXT,
            created_at TIMESTAMP,
            edited_at TIMESTAMP,
            upvotes_count INTEGER,
            downvotes_count INTEGER,
            pin_reactions_count INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS club_users (
            id TEXT PRIMARY KEY,
            is_bot BOOLEAN,
            is_member BOOLEAN,
            display_name TEXT,
            mention TEXT,
            joined_at TIMESTAMP,
            roles TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS club_pin_reactions (
            user_id TEXT,
            message_id TEXT,
            UNIQUE(user_id, message_id)
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Reset clears all three record tables; each crawl starts from scratch.
func (s *SQLite) Reset(ctx context.Context) error {
	for _, table := range []string{"club_pin_reactions", "club_messages", "club_users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// InsertMessage stores one crawled message.
func (s *SQLite) InsertMessage(ctx context.Context, msg club.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO club_messages (
            id, url, content, author_id, channel_id, channel_name,
            channel_mention, type, created_at, edited_at,
            upvotes_count, downvotes_count, pin_reactions_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.URL, msg.Content, msg.AuthorID, msg.ChannelID,
		msg.ChannelName, msg.ChannelMention, msg.Type, msg.CreatedAt,
		msg.EditedAt, msg.UpvotesCount, msg.DownvotesCount,
		msg.PinReactionsCount,
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

// InsertUser stores one deduplicated user.
func (s *SQLite) InsertUser(ctx context.Context, user club.User) error {
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO club_users (
            id, is_bot, is_member, display_name, mention, joined_at, roles
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.IsBot, user.IsMember, user.DisplayName,
		user.Mention, user.JoinedAt, string(roles),
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.ID, err)
	}
	return nil
}

// InsertPinReaction stores one pin link; duplicates are ignored.
func (s *SQLite) InsertPinReaction(ctx context.Context, pin club.PinReaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO club_pin_reactions (user_id, message_id)
         VALUES (?, ?)`,
		pin.UserID, pin.MessageID,
	)
	if err != nil {
		return fmt.Errorf("insert pin reaction: %w", err)
	}
	return nil
}

// CountMessages returns how many messages are stored.
func (s *SQLite) CountMessages(ctx context.Context) (int, error) {
	return s.count(ctx, "club_messages")
}

// CountUsers returns how many users are stored.
func (s *SQLite) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "club_users")
}

// CountPinReactions returns how many pin links are stored.
func (s *SQLite) CountPinReactions(ctx context.Context) (int, error) {
	return s.count(ctx, "club_pin_reactions")
}

func (s *SQLite) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
