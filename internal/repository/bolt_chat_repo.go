package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/billchat/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var exchangesBucket = []byte("chat_exchanges")

// BoltChatRepository stores chat history in a bbolt file, one nested bucket
// per bill keyed by a monotonically increasing sequence.
type BoltChatRepository struct {
	db *bolt.DB
}

// NewBoltChatRepository opens (or creates) the bbolt file at path.
func NewBoltChatRepository(path string) (*BoltChatRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(exchangesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltChatRepository{db: db}, nil
}

// Close closes the bbolt file
func (r *BoltChatRepository) Close() error {
	return r.db.Close()
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// Create stores a new chat exchange
func (r *BoltChatRepository) Create(_ context.Context, billID, message, response string) (*domain.ChatExchange, error) {
	exchange := &domain.ChatExchange{
		ID:        uuid.New().String(),
		Message:   message,
		Response:  response,
		CreatedAt: time.Now().UTC(),
		BillID:    billID,
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		bill, err := tx.Bucket(exchangesBucket).CreateBucketIfNotExists([]byte(billID))
		if err != nil {
			return err
		}
		seq, err := bill.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		v, err := json.Marshal(exchange)
		if err != nil {
			return fmt.Errorf("failed to marshal exchange: %w", err)
		}
		return bill.Put(seqKey(seq), v)
	})
	if err != nil {
		return nil, err
	}
	return exchange, nil
}

// ListByBill retrieves all exchanges for a bill in insertion order
func (r *BoltChatRepository) ListByBill(_ context.Context, billID string) ([]*domain.ChatExchange, error) {
	exchanges := []*domain.ChatExchange{}
	err := r.db.View(func(tx *bolt.Tx) error {
		bill := tx.Bucket(exchangesBucket).Bucket([]byte(billID))
		if bill == nil {
			return nil
		}
		return bill.ForEach(func(_, v []byte) error {
			e := &domain.ChatExchange{}
			if err := json.Unmarshal(v, e); err != nil {
				return fmt.Errorf("failed to unmarshal exchange: %w", err)
			}
			exchanges = append(exchanges, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return exchanges, nil
}

// Count returns the total number of stored exchanges
func (r *BoltChatRepository) Count(_ context.Context) (int, error) {
	count := 0
	err := r.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(exchangesBucket)
		return root.ForEachBucket(func(k []byte) error {
			return root.Bucket(k).ForEach(func(_, v []byte) error {
				if v != nil {
					count++
				}
				return nil
			})
		})
	})
	return count, err
}

// DeleteAll removes all chat history
func (r *BoltChatRepository) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	err = r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(exchangesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(exchangesBucket)
		return err
	})
	return int64(n), err
}
