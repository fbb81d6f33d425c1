package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/locolive/chat-engine/internal/domain"
)

// BadgerRepository is an embedded ChatStore and UserDirectory.
//
// Keys:
//
//	chat:{chat_id}                 -> chatRecord (JSON)
//	direct:{pair_key}              -> chat_id
//	member:{user_id}:{chat_id}     -> empty, one per member
//	creator:{user_id}:{chat_id}    -> empty, groups only
//	user:{user_id}                 -> domain.Profile (JSON)
//
// Every write runs in one serializable transaction that also reads the keys
// it depends on, so a concurrent writer makes the commit fail with
// badger.ErrConflict, reported as domain.ErrConflict.
type BadgerRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// OpenBadger opens (or creates) a Badger database in dir.
func OpenBadger(dir string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", dir, err)
	}
	return db, nil
}

type chatRecord struct {
	ID        uuid.UUID   `json:"id"`
	IsGroup   bool        `json:"is_group"`
	Name      string      `json:"name,omitempty"`
	Members   []uuid.UUID `json:"members"`
	Creator   uuid.UUID   `json:"creator"`
	DirectKey string      `json:"direct_key,omitempty"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func fromChat(c *domain.Chat) chatRecord {
	return chatRecord{
		ID:        c.ID,
		IsGroup:   c.IsGroup,
		Name:      c.Name,
		Members:   c.Members,
		Creator:   c.Creator,
		DirectKey: c.DirectKey,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r chatRecord) toChat() *domain.Chat {
	return &domain.Chat{
		ID:        r.ID,
		IsGroup:   r.IsGroup,
		Name:      r.Name,
		Members:   r.Members,
		Creator:   r.Creator,
		DirectKey: r.DirectKey,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func chatKey(id uuid.UUID) []byte {
	return []byte("chat:" + id.String())
}

func directIndexKey(pairKey string) []byte {
	return []byte("direct:" + pairKey)
}

func memberPrefix(userID uuid.UUID) []byte {
	return []byte("member:" + userID.String() + ":")
}

func memberKey(userID, chatID uuid.UUID) []byte {
	return append(memberPrefix(userID), chatID.String()...)
}

func creatorPrefix(userID uuid.UUID) []byte {
	return []byte("creator:" + userID.String() + ":")
}

func creatorKey(userID, chatID uuid.UUID) []byte {
	return append(creatorPrefix(userID), chatID.String()...)
}

func userKey(id uuid.UUID) []byte {
	return []byte("user:" + id.String())
}

// GetChat retrieves a chat by ID
func (r *BadgerRepository) GetChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec chatRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return readChat(txn, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toChat(), nil
}

// FindDirectChat retrieves the direct chat between two users
func (r *BadgerRepository) FindDirectChat(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec chatRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(directIndexKey(domain.DirectKey(userA, userB)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no direct chat between %s and %s", domain.ErrNotFound, userA, userB)
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.ParseBytes(raw)
		if err != nil {
			return fmt.Errorf("corrupt direct index: %w", err)
		}
		return readChat(txn, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toChat(), nil
}

// ListChatsByMember returns the chats containing userID, most recently updated first
func (r *BadgerRepository) ListChatsByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	return r.listByIndex(ctx, memberPrefix(userID))
}

// ListGroupsByCreator returns the groups created by userID
func (r *BadgerRepository) ListGroupsByCreator(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	return r.listByIndex(ctx, creatorPrefix(userID))
}

func (r *BadgerRepository) listByIndex(ctx context.Context, prefix []byte) ([]*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var chats []*domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []uuid.UUID
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := uuid.ParseBytes(it.Item().Key()[len(prefix):])
			if err != nil {
				return fmt.Errorf("corrupt index key %q: %w", it.Item().Key(), err)
			}
			ids = append(ids, id)
		}

		for _, id := range ids {
			var rec chatRecord
			if err := readChat(txn, id, &rec); err != nil {
				return err
			}
			chats = append(chats, rec.toChat())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// InsertChat stores a new chat, assigning its ID, version and timestamps
func (r *BadgerRepository) InsertChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := r.now()
	rec := fromChat(chat)
	rec.ID = uuid.New()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err := r.update(func(txn *badger.Txn) error {
		if rec.DirectKey != "" {
			_, err := txn.Get(directIndexKey(rec.DirectKey))
			if err == nil {
				return fmt.Errorf("%w: direct chat already exists", domain.ErrConflict)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(directIndexKey(rec.DirectKey), []byte(rec.ID.String())); err != nil {
				return err
			}
		}
		for _, m := range rec.Members {
			if err := txn.Set(memberKey(m, rec.ID), nil); err != nil {
				return err
			}
		}
		if rec.IsGroup {
			if err := txn.Set(creatorKey(rec.Creator, rec.ID), nil); err != nil {
				return err
			}
		}
		return writeChat(txn, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toChat(), nil
}

// UpdateMembers replaces the member set if the chat is still at expectedVersion
func (r *BadgerRepository) UpdateMembers(ctx context.Context, id uuid.UUID, members []uuid.UUID, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, func(txn *badger.Txn, rec *chatRecord) error {
		for _, m := range lo.Without(rec.Members, members...) {
			if err := txn.Delete(memberKey(m, rec.ID)); err != nil {
				return err
			}
		}
		for _, m := range lo.Without(members, rec.Members...) {
			if err := txn.Set(memberKey(m, rec.ID), nil); err != nil {
				return err
			}
		}
		rec.Members = members
		return nil
	})
}

// UpdateCreator changes the creator of a group if it is still at expectedVersion
func (r *BadgerRepository) UpdateCreator(ctx context.Context, id uuid.UUID, creator uuid.UUID, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, func(txn *badger.Txn, rec *chatRecord) error {
		if err := txn.Delete(creatorKey(rec.Creator, rec.ID)); err != nil {
			return err
		}
		if err := txn.Set(creatorKey(creator, rec.ID), nil); err != nil {
			return err
		}
		rec.Creator = creator
		return nil
	})
}

// UpdateName renames a group if it is still at expectedVersion
func (r *BadgerRepository) UpdateName(ctx context.Context, id uuid.UUID, name string, expectedVersion int64) (*domain.Chat, error) {
	return r.compareAndSwap(ctx, id, expectedVersion, func(_ *badger.Txn, rec *chatRecord) error {
		rec.Name = name
		return nil
	})
}

func (r *BadgerRepository) compareAndSwap(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	apply func(txn *badger.Txn, rec *chatRecord) error,
) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec chatRecord
	err := r.update(func(txn *badger.Txn) error {
		if err := readChat(txn, id, &rec); err != nil {
			return err
		}
		if rec.Version != expectedVersion {
			return fmt.Errorf("%w: chat %s is at version %d, expected %d",
				domain.ErrConflict, id, rec.Version, expectedVersion)
		}
		if err := apply(txn, &rec); err != nil {
			return err
		}
		rec.Version++
		rec.UpdatedAt = r.now()
		return writeChat(txn, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toChat(), nil
}

// DeleteChat removes a chat and its index entries if it is still at
// expectedVersion
func (r *BadgerRepository) DeleteChat(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(txn *badger.Txn) error {
		var rec chatRecord
		if err := readChat(txn, id, &rec); err != nil {
			return err
		}
		if rec.Version != expectedVersion {
			return fmt.Errorf("%w: chat %s is at version %d, expected %d",
				domain.ErrConflict, id, rec.Version, expectedVersion)
		}
		for _, m := range rec.Members {
			if err := txn.Delete(memberKey(m, rec.ID)); err != nil {
				return err
			}
		}
		if rec.IsGroup {
			if err := txn.Delete(creatorKey(rec.Creator, rec.ID)); err != nil {
				return err
			}
		}
		if rec.DirectKey != "" {
			if err := txn.Delete(directIndexKey(rec.DirectKey)); err != nil {
				return err
			}
		}
		return txn.Delete(chatKey(rec.ID))
	})
}

// UpsertUser stores the presentation profile of a user
func (r *BadgerRepository) UpsertUser(ctx context.Context, profile domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.update(func(txn *badger.Txn) error {
		return txn.Set(userKey(profile.ID), data)
	})
}

// ResolveMany returns the profiles of the known users among ids
func (r *BadgerRepository) ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profiles := make(map[uuid.UUID]domain.Profile, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			item, err := txn.Get(userKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var p domain.Profile
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			profiles[id] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Ping reports whether the database is open
func (r *BadgerRepository) Ping(_ context.Context) error {
	if r.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

// update runs fn in a read-write transaction and reports a serialization
// failure as domain.ErrConflict.
func (r *BadgerRepository) update(fn func(txn *badger.Txn) error) error {
	err := r.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func readChat(txn *badger.Txn, id uuid.UUID, rec *chatRecord) error {
	item, err := txn.Get(chatKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: chat %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}

func writeChat(txn *badger.Txn, rec chatRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(chatKey(rec.ID), data)
}
