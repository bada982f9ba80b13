// Package storage реализует локальное хранилище состояния кассы:
// независимые JSON-блобы по ключам. Атомарности между ключами нет —
// прерывание между записью заказов и долгов оставит их рассинхронными,
// это принятый риск хранилища.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Ключи блобов, совпадающие с ключами исходного приложения.
const (
	KeyProducts = "products"
	KeyOrders   = "electromax_orders"
	KeyDebts    = "electromax_debts"
	KeyCart     = "electromax_cart"
	KeyRate     = "electromax_rate"
)

// ErrNotFound возвращается, если блоб по ключу ещё не записан.
var ErrNotFound = errors.New("key not found")

// FileStore хранит блобы в отдельных JSON-файлах каталога данных.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore создаёт хранилище в указанном каталоге.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get возвращает блоб по ключу.
func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set записывает блоб по ключу, перезаписывая предыдущее значение.
func (s *FileStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path(key), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
