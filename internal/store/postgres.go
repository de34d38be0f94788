package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"alumni-chat/internal/models"
	"alumni-chat/internal/observability"
)

// PostgresStore keeps message documents in Postgres and fans change
// notifications out through a ChangeFeed. Reactions and reply snapshots are
// stored as JSONB; ids are assigned here, timestamps by the database.
type PostgresStore struct {
	db   *sqlx.DB
	feed *ChangeFeed
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sqlx.DB, feed *ChangeFeed) *PostgresStore {
	return &PostgresStore{db: db, feed: feed}
}

type messageRow struct {
	ID         string         `db:"id"`
	ChannelID  string         `db:"channel_id"`
	Text       string         `db:"text"`
	SenderID   string         `db:"sender_id"`
	SenderName string         `db:"sender_name"`
	Role       string         `db:"role"`
	CreatedAt  time.Time      `db:"created_at"`
	Edited     bool           `db:"edited"`
	EditedAt   sql.NullTime   `db:"edited_at"`
	Reactions  []byte         `db:"reactions"`
	ReplyTo    sql.NullString `db:"reply_to"`
}

func (r messageRow) toMessage() (models.Message, error) {
	ts := r.CreatedAt
	msg := models.Message{
		ID:         r.ID,
		ChannelID:  r.ChannelID,
		Text:       r.Text,
		SenderID:   r.SenderID,
		SenderName: r.SenderName,
		Role:       r.Role,
		Timestamp:  &ts,
		Edited:     r.Edited,
		Reactions:  map[string][]string{},
	}
	if r.EditedAt.Valid {
		editedAt := r.EditedAt.Time
		msg.EditedAt = &editedAt
	}
	if len(r.Reactions) > 0 {
		if err := json.Unmarshal(r.Reactions, &msg.Reactions); err != nil {
			return models.Message{}, fmt.Errorf("decode reactions: %w", err)
		}
	}
	if r.ReplyTo.Valid {
		var ref models.ReplyRef
		if err := json.Unmarshal([]byte(r.ReplyTo.String), &ref); err != nil {
			return models.Message{}, fmt.Errorf("decode reply_to: %w", err)
		}
		msg.ReplyTo = &ref
	}
	return msg, nil
}

// Append inserts a new message document. The id is assigned here, the
// creation timestamp by the database, so ordering follows commit order
// rather than client clocks.
func (s *PostgresStore) Append(ctx context.Context, channelID string, msg models.Message) error {
	ctx, span := otel.Tracer("alumni-chat/store").Start(ctx, "store.append")
	defer span.End()
	span.SetAttributes(attribute.String("chat.channel_id", channelID))

	reactions, err := json.Marshal(msg.Reactions)
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}
	var replyTo any
	if msg.ReplyTo != nil {
		encoded, err := json.Marshal(msg.ReplyTo)
		if err != nil {
			return fmt.Errorf("encode reply_to: %w", err)
		}
		replyTo = string(encoded)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO messages (id, channel_id, text, sender_id, sender_name, role, edited, reactions, reply_to)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), channelID, msg.Text, msg.SenderID, msg.SenderName, msg.Role, msg.Edited, reactions, replyTo)
	if err != nil {
		observability.IncStoreWriteError("append")
		return err
	}

	observability.IncStoreWrite("append")
	s.notifyChanged(ctx, channelID)
	return nil
}

// Patch replaces the named mutable fields of one message. Unknown fields
// are rejected; a patch against a missing message returns ErrMessageNotFound.
func (s *PostgresStore) Patch(ctx context.Context, messageID string, fields PatchFields) error {
	ctx, span := otel.Tracer("alumni-chat/store").Start(ctx, "store.patch")
	defer span.End()
	span.SetAttributes(attribute.String("chat.message_id", messageID))

	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	args = append(args, messageID)
	for name, value := range fields {
		switch name {
		case FieldText, FieldEdited, FieldEditedAt:
		case FieldReactions:
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encode reactions: %w", err)
			}
			value = encoded
		default:
			return fmt.Errorf("field %q is not patchable", name)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}

	query := fmt.Sprintf(`UPDATE messages SET %s WHERE id = $1 RETURNING channel_id`, strings.Join(sets, ", "))
	var channelID string
	err := s.db.QueryRowxContext(ctx, query, args...).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		observability.IncStoreWriteError("patch")
		return err
	}

	observability.IncStoreWrite("patch")
	s.notifyChanged(ctx, channelID)
	return nil
}

// Remove hard-deletes one message. There is no tombstone: replies keep only
// their denormalized snapshot of it.
func (s *PostgresStore) Remove(ctx context.Context, messageID string) error {
	ctx, span := otel.Tracer("alumni-chat/store").Start(ctx, "store.remove")
	defer span.End()
	span.SetAttributes(attribute.String("chat.message_id", messageID))

	var channelID string
	err := s.db.QueryRowxContext(ctx, `DELETE FROM messages WHERE id = $1 RETURNING channel_id`, messageID).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		observability.IncStoreWriteError("remove")
		return err
	}

	observability.IncStoreWrite("remove")
	s.notifyChanged(ctx, channelID)
	return nil
}

// Subscribe opens a snapshot feed for one channel. The current snapshot is
// delivered immediately, then the full list is re-read and re-delivered on
// every change notification for the channel. Consecutive snapshots conflate:
// a slow consumer only ever sees the latest one.
func (s *PostgresStore) Subscribe(ctx context.Context, channelID string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	deliveries, stop, err := s.feed.Listen(ctx, channelID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &feedSubscription{
		snapshots: make(chan []models.Message, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
	}

	initial, err := s.loadSnapshot(ctx, channelID)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	sub.push(initial)
	observability.IncSnapshotDelivered(channelID)

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				close(sub.snapshots)
				return
			case _, ok := <-deliveries:
				if !ok {
					// The broker closed the feed out from under us;
					// the whole subscription is invalid.
					sub.errs <- errors.New("change feed closed")
					close(sub.snapshots)
					return
				}
				snapshot, err := s.loadSnapshot(ctx, channelID)
				if err != nil {
					if ctx.Err() != nil {
						close(sub.snapshots)
						return
					}
					log.Printf("snapshot reload failed channel=%s: %v", channelID, err)
					continue
				}
				sub.push(snapshot)
				observability.IncSnapshotDelivered(channelID)
			}
		}
	}()

	return sub, nil
}

func (s *PostgresStore) loadSnapshot(ctx context.Context, channelID string) ([]models.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, channel_id, text, sender_id, sender_name, role, created_at, edited, edited_at, reactions, reply_to
        FROM messages
        WHERE channel_id = $1
        ORDER BY created_at ASC, seq ASC`, channelID)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toMessage()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *PostgresStore) notifyChanged(ctx context.Context, channelID string) {
	if err := s.feed.NotifyChanged(ctx, channelID); err != nil {
		log.Printf("change notify failed channel=%s: %v", channelID, err)
	}
}

type feedSubscription struct {
	snapshots chan []models.Message
	errs      chan error
	cancel    context.CancelFunc
}

func (s *feedSubscription) Snapshots() <-chan []models.Message { return s.snapshots }

func (s *feedSubscription) Err() <-chan error { return s.errs }

func (s *feedSubscription) Unsubscribe() { s.cancel() }

// push conflates: if the previous snapshot was never consumed, it is
// replaced by the newer one.
func (s *feedSubscription) push(snapshot []models.Message) {
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}
