package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NelliaS/junior.guru/internal/club"
)

// PgxIface is the slice of pgxpool.Pool the Postgres sink needs; pgxmock
// satisfies it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres persists crawled records into PostgreSQL via pgx.
type Postgres struct {
	db PgxIface
}

// OpenPostgres connects a pool, verifies it, and runs the migration.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := NewPostgres(pool)
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// NewPostgres wraps an existing connection; used by OpenPostgres and tests.
func NewPostgres(db PgxIface) *Postgres {
	return &Postgres{db: db}
}

// Close releases the pool.
func (p *Postgres) Close() { p.db.Close() }

func (p *Postgres) migrate(ctx context.Context) error {
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
            created_at TIMESTAMPTZ,
            edited_at TIMESTAMPTZ,
            upvotes_count INTEGER,
            downvotes_count INTEGER,
            pin_reactions_count INTEGER
        )`,
		`CREATE TABLE IF NOT EXISTS club_users (
            id TEXT PRIMARY KEY,
            is_bot BOOLEAN,
            is_member BOOLEAN,
            display_name TEXT,
            mention TEXT,
            joined_at TIMESTAMPTZ,
            roles JSONB
        )`,
		`CREATE TABLE IF NOT EXISTS club_pin_reactions (
            user_id TEXT,
            message_id TEXT,
            UNIQUE(user_id, message_id)
        )`,
	}
	for _, q := range stmts {
		if _, err := p.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Reset clears all three record tables.
func (p *Postgres) Reset(ctx context.Context) error {
	for _, table := range []string{"club_pin_reactions", "club_messages", "club_users"} {
		if _, err := p.db.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// InsertMessage stores one crawled message.
func (p *Postgres) InsertMessage(ctx context.Context, msg club.Message) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO club_messages (
            id, url, content, author_id, channel_id, channel_name,
            channel_mention, type, created_at, edited_at,
            upvotes_count, downvotes_count, pin_reactions_count
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
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
func (p *Postgres) InsertUser(ctx context.Context, user club.User) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO club_users (
            id, is_bot, is_member, display_name, mention, joined_at, roles
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.IsBot, user.IsMember, user.DisplayName,
		user.Mention, user.JoinedAt, user.Roles,
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.ID, err)
	}
	return nil
}

// InsertPinReaction stores one pin link; duplicates are ignored.
func (p *Postgres) InsertPinReaction(ctx context.Context, pin club.PinReaction) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO club_pin_reactions (user_id, message_id)
         VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		pin.UserID, pin.MessageID,
	)
	if err != nil {
		return fmt.Errorf("insert pin reaction: %w", err)
	}
	return nil
}
