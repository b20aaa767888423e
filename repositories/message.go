package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"roomcast/domain"
)

// MessageRepository persists chat messages in BadgerDB.
//
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages land on the same nanosecond.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID       string    `json:"id"`
	Room     string    `json:"room"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

// Append assigns the message id and writes the record. A zero timestamp is
// stamped here so the ordering key is always server-controlled.
func (m MessageRepository) Append(roomID domain.RoomID, msg domain.ChatMessage) (domain.StoredMessage, error) {
	stored := domain.StoredMessage{
		ID:       uuid.New(),
		RoomID:   roomID,
		Username: msg.Username,
		Content:  msg.Content,
		At:       msg.At,
	}
	if stored.At.IsZero() {
		stored.At = time.Now().UTC()
	}

	value, err := json.Marshal(fromStored(stored))
	if err != nil {
		return domain.StoredMessage{}, err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(messageKey(stored)), value)
	})
	if err != nil {
		return domain.StoredMessage{}, err
	}
	return stored, nil
}

// Recent returns at most limit messages for a room, oldest first. It scans
// the prefix in reverse (newest keys first thanks to the padded timestamp)
// and flips the page before returning, which is exactly what history
// replay wants.
func (m MessageRepository) Recent(roomID domain.RoomID, limit int) ([]domain.StoredMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
	var raw [][]byte

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this room, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(raw) == limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			raw = append(raw, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.StoredMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var record diskMessage
		if err := json.Unmarshal(raw[i], &record); err != nil {
			return nil, err
		}
		stored, err := toStored(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, stored)
	}
	return messages, nil
}

// All lists every stored message of a room in chronological order, used by
// the viewer binary.
func (m MessageRepository) All(roomID domain.RoomID) ([]domain.StoredMessage, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
	var records []diskMessage

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record diskMessage
			if err := json.Unmarshal(value, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(records, func(r diskMessage, _ int) domain.StoredMessage {
		stored, _ := toStored(r)
		return stored
	}), nil
}

func messageKey(stored domain.StoredMessage) string {
	return fmt.Sprintf("msg:%s:%019d:%s", stored.RoomID, stored.At.UnixNano(), stored.ID)
}

func fromStored(stored domain.StoredMessage) diskMessage {
	return diskMessage{
		ID:       stored.ID.String(),
		Room:     string(stored.RoomID),
		Username: stored.Username,
		Content:  stored.Content,
		At:       stored.At,
	}
}

func toStored(record diskMessage) (domain.StoredMessage, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	return domain.StoredMessage{
		ID:       id,
		RoomID:   domain.RoomID(record.Room),
		Username: record.Username,
		Content:  record.Content,
		At:       record.At.UTC(),
	}, nil
}
