//go:generate go run go.uber.org/mock/mockgen -source=board.go -destination=../mocks/mock_board_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"board-lab/domain"
	"board-lab/errors"
)

const boardKeyPrefix = "board:"

type IBoardRepository interface {
	Save(ctx context.Context, key string, snap domain.Snapshot) error
	Load(ctx context.Context, key string) (domain.Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// BoardRepository persists whole-board snapshots in BadgerDB. One snapshot
// per key, stored as JSON under "board:{name}"; a save overwrites any
// previous snapshot under the same name.
type BoardRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBoardRepository(db *badger.DB, log *slog.Logger) BoardRepository {
	return BoardRepository{db: db, log: log}
}

func (r BoardRepository) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bytes, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	r.log.Debug("Saving board", "key", key, "bytes", len(bytes))
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(boardKeyPrefix+key), bytes)
	})
}

func (r BoardRepository) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(boardKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Snapshot{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// List returns the names of every saved board, via a key-only prefix scan.
func (r BoardRepository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(boardKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), boardKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
