package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locolive/chat-engine/internal/domain"
)

const uniqueViolation = "23505"

// Schema creates the tables used by PostgresRepository. direct_key is unique,
// so two concurrent inserts of the same pair cannot both commit.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name       TEXT NOT NULL,
	avatar_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chats (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	is_group   BOOLEAN NOT NULL,
	name       TEXT,
	creator_id UUID,
	members    UUID[] NOT NULL,
	direct_key TEXT UNIQUE,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT chats_kind CHECK (
		(is_group AND name <> '' AND creator_id IS NOT NULL AND direct_key IS NULL)
		OR (NOT is_group AND direct_key IS NOT NULL AND cardinality(members) = 2)
	),
	CONSTRAINT chats_size CHECK (cardinality(members) BETWEEN 2 AND 100)
);

CREATE INDEX IF NOT EXISTS idx_chats_members ON chats USING GIN (members);
CREATE INDEX IF NOT EXISTS idx_chats_creator ON chats (creator_id) WHERE is_group;
`

const chatColumns = `id, is_group, COALESCE(name, ''), COALESCE(creator_id, '00000000-0000-0000-0000-000000000000'::uuid),
	members, COALESCE(direct_key, ''), version, created_at, updated_at`

// PostgresRepository implements domain.ChatStore and domain.UserDirectory using PostgreSQL
type PostgresRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository. Every call is
// bounded by timeout.
func NewPostgresRepository(db *pgxpool.Pool, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

// Migrate creates the schema if it does not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// GetChat retrieves a chat by ID
func (r *PostgresRepository) GetChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	return scanChat(r.db.QueryRow(ctx, query, id))
}

// FindDirectChat retrieves the direct chat between two users
func (r *PostgresRepository) FindDirectChat(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + chatColumns + ` FROM chats WHERE direct_key = $1`
	return scanChat(r.db.QueryRow(ctx, query, domain.DirectKey(userA, userB)))
}

// ListChatsByMember returns the chats containing userID, most recently updated first
func (r *PostgresRepository) ListChatsByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE members @> ARRAY[$1::uuid] ORDER BY updated_at DESC`
	return r.queryChats(ctx, query, userID)
}

// ListGroupsByCreator returns the groups created by userID
func (r *PostgresRepository) ListGroupsByCreator(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE is_group AND creator_id = $1 ORDER BY updated_at DESC`
	return r.queryChats(ctx, query, userID)
}

func (r *PostgresRepository) queryChats(ctx context.Context, query string, args ...interface{}) ([]*domain.Chat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// InsertChat creates a new chat
func (r *PostgresRepository) InsertChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO chats (is_group, name, creator_id, members, direct_key)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''))
		RETURNING ` + chatColumns

	var creator *uuid.UUID
	if chat.IsGroup {
		creator = &chat.Creator
	}

	created, err := scanChat(r.db.QueryRow(ctx, query,
		chat.IsGroup,
		chat.Name,
		creator,
		chat.Members,
		chat.DirectKey,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: direct chat already exists", domain.ErrConflict)
		}
		return nil, err
	}
	return created, nil
}

// UpdateMembers replaces the member set if the chat is still at expectedVersion
func (r *PostgresRepository) UpdateMembers(ctx context.Context, id uuid.UUID, members []uuid.UUID, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, `members = $3`, members)
}

// UpdateCreator changes the creator of a group if it is still at expectedVersion
func (r *PostgresRepository) UpdateCreator(ctx context.Context, id uuid.UUID, creator uuid.UUID, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, `creator_id = $3`, creator)
}

// UpdateName renames a group if it is still at expectedVersion
func (r *PostgresRepository) UpdateName(ctx context.Context, id uuid.UUID, name string, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, `name = $3`, name)
}

func (r *PostgresRepository) compareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, set string, value interface{}) (*domain.Chat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE chats SET ` + set + `, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + chatColumns

	chat, err := scanChat(r.db.QueryRow(ctx, query, id, expectedVersion, value))
	if !errors.Is(err, domain.ErrNotFound) {
		return chat, err
	}

	return nil, r.missedVersion(ctx, id, expectedVersion)
}

// missedVersion explains a versioned write that matched no row: either the
// chat is gone or another writer moved it on.
func (r *PostgresRepository) missedVersion(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: chat %s is no longer at version %d", domain.ErrConflict, id, expectedVersion)
	}
	return fmt.Errorf("%w: chat %s", domain.ErrNotFound, id)
}

// DeleteChat deletes a chat if it is still at expectedVersion
func (r *PostgresRepository) DeleteChat(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missedVersion(ctx, id, expectedVersion)
	}
	return nil
}

// UpsertUser creates or updates the presentation profile of a user
func (r *PostgresRepository) UpsertUser(ctx context.Context, profile domain.Profile) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, name, avatar_url) VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, profile.ID, profile.Name, profile.AvatarURL)
	return err
}

// ResolveMany returns the profiles of the known users among ids
func (r *PostgresRepository) ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id, name, COALESCE(avatar_url, '') FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[uuid.UUID]domain.Profile, len(ids))
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(ctx)
}

// Helper functions for scanning rows

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var chat domain.Chat
	err := row.Scan(
		&chat.ID,
		&chat.IsGroup,
		&chat.Name,
		&chat.Creator,
		&chat.Members,
		&chat.DirectKey,
		&chat.Version,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: chat", domain.ErrNotFound)
		}
		return nil, err
	}
	return &chat, nil
}
