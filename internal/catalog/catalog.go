// Package catalog загружает каталог товаров из файла или по HTTP
// и сохраняет правки обратно в файл.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electromax/electromax-pos/internal/model"
)

// ErrReadOnlySource возвращается при попытке сохранить каталог,
// загруженный по HTTP.
var ErrReadOnlySource = errors.New("catalog source is read-only")

// Loader читает и пишет документ каталога вида {"products": [...]}.
// Источником служит путь к файлу либо http(s)-адрес.
type Loader struct {
	source     string
	httpClient *http.Client
}

// NewLoader создаёт загрузчик каталога для указанного источника.
func NewLoader(source string) *Loader {
	return &Loader{
		source: source,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type document struct {
	Products []model.Product `json:"products"`
}

// Load читает каталог из источника. Принимает как документ
// {"products": [...]}, так и голый массив товаров.
func (l *Loader) Load(ctx context.Context) ([]model.Product, error) {
	var (
		data []byte
		err  error
	)
	if isHTTP(l.source) {
		data, err = l.fetch(ctx)
	} else {
		data, err = os.ReadFile(l.source)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return parse(data)
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func parse(data []byte) ([]model.Product, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Products != nil {
		return doc.Products, nil
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return products, nil
}

// Save переписывает файл каталога в том же виде {"products": [...]}.
func (l *Loader) Save(products []model.Product) error {
	if isHTTP(l.source) {
		return ErrReadOnlySource
	}

	data, err := json.MarshalIndent(document{Products: products}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(l.source, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

var fallbackCategories = []string{"Кабели", "Розетки", "Выключатели", "Лампы", "Автоматы"}

const fallbackSize = 40

// Fallback возвращает детерминированный синтетический каталог: касса
// остаётся рабочей, если источник каталога недоступен. Категории
// чередуются по фиксированному кругу, цены и остатки псевдослучайны
// с фиксированным зерном.
func Fallback() []model.Product {
	rnd := rand.New(rand.NewSource(42))

	products := make([]model.Product, 0, fallbackSize)
	for i := 1; i <= fallbackSize; i++ {
		price := decimal.NewFromInt(int64(rnd.Intn(9900) + 100)).Div(decimal.NewFromInt(100))
		products = append(products, model.Product{
			ID:       int64(i),
			Name:     fmt.Sprintf("Товар %d", i),
			Unit:     "шт.",
			Price:    price,
			Category: fallbackCategories[(i-1)%len(fallbackCategories)],
			Stock:    int64(rnd.Intn(50) + 1),
		})
	}

	return products
}
