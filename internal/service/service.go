// Package service реализует бизнес-логику кассы: операции над состоянием
// с последующим сохранением в локальное хранилище и зеркало.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/electromax/electromax-pos/internal/analytics"
	"github.com/electromax/electromax-pos/internal/model"
	"github.com/electromax/electromax-pos/internal/search"
	"github.com/electromax/electromax-pos/internal/storage"
	"github.com/electromax/electromax-pos/internal/store"
)

// ErrBackupFormat возвращается, если файл не похож на резервную копию.
var (
	ErrBackupFormat = errors.New("backup format mismatch")
	// ErrInvalidDueDate возвращается при неразбираемой дате возврата долга.
	ErrInvalidDueDate = errors.New("invalid due date")
)

// Интервал обновления курса валют.
const rateRefreshInterval = 10 * time.Minute

// Storage описывает контракт локального хранилища блобов.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
}

// Mirror описывает контракт необязательного удалённого зеркала.
type Mirror interface {
	SaveDocument(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Catalog описывает контракт источника каталога товаров.
type Catalog interface {
	Load(ctx context.Context) ([]model.Product, error)
	Save(products []model.Product) error
}

// RateSource описывает контракт источника обменного курса.
type RateSource interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Service содержит бизнес-логику кассы.
type Service struct {
	ledger  *store.Ledger
	storage Storage
	mirror  Mirror
	catalog Catalog
	rates   RateSource
	logger  *zap.Logger
}

// NewService создаёт сервис. Зеркало может быть nil — тогда состояние
// сохраняется только локально.
func NewService(ledger *store.Ledger, st Storage, mirror Mirror, cat Catalog, rates RateSource, logger *zap.Logger) *Service {
	return &Service{
		ledger:  ledger,
		storage: st,
		mirror:  mirror,
		catalog: cat,
		rates:   rates,
		logger:  logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.mirror != nil {
		return s.mirror.Close()
	}
	return nil
}

// LoadState загружает каталог и восстанавливает сохранённое состояние.
// Повреждённые данные чинятся нормализацией, недоступный каталог
// заменяется синтетическим — обе ошибки не фатальны.
func (s *Service) LoadState(ctx context.Context, fallback func() []model.Product) {
	products, err := s.catalog.Load(ctx)
	if err != nil {
		s.logger.Warn("catalog load failed, using fallback", zap.Error(err))
		products = fallback()
	}

	orders := store.NormalizeOrders(s.blob(storage.KeyOrders))
	debts := store.NormalizeDebts(s.blob(storage.KeyDebts))
	cart := store.NormalizeCart(s.blob(storage.KeyCart))

	rate := decimal.Zero
	if raw := s.blob(storage.KeyRate); len(raw) > 0 {
		if err := json.Unmarshal(raw, &rate); err != nil {
			rate = decimal.Zero
		}
	}

	s.ledger.Replace(products, orders, debts, cart, rate)
}

func (s *Service) blob(key string) []byte {
	data, err := s.storage.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return data
}

// Products возвращает текущий каталог.
func (s *Service) Products() []model.Product {
	return s.ledger.Products()
}

// ProductMatch содержит товар с релевантностью и подсветкой совпадений.
type ProductMatch struct {
	Product    model.Product
	Score      float64
	Highlights map[string][]search.Span
}

// SearchProducts ранжирует каталог по текстовому запросу. Пустой запрос
// возвращает весь каталог в исходном порядке.
func (s *Service) SearchProducts(query string) []ProductMatch {
	products := s.ledger.Products()

	items := make([]search.Item, 0, len(products))
	for _, p := range products {
		items = append(items, search.Item{Fields: map[string]string{
			"name": p.Name,
			"id":   strconv.FormatInt(p.ID, 10),
		}})
	}

	results := search.Rank(query, items)

	matches := make([]ProductMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, ProductMatch{
			Product:    products[r.Index],
			Score:      r.Score,
			Highlights: r.Highlights,
		})
	}
	return matches
}

// EditProduct переписывает название и цену товара и сохраняет каталог.
func (s *Service) EditProduct(ctx context.Context, id int64, name string, price decimal.Decimal) error {
	if err := s.ledger.EditProduct(id, name, price); err != nil {
		return err
	}
	if err := s.catalog.Save(s.ledger.Products()); err != nil {
		return err
	}
	return nil
}

// AddToCart добавляет товар каталога в корзину.
func (s *Service) AddToCart(ctx context.Context, productID int64) error {
	p, ok := s.ledger.ProductByID(productID)
	if !ok {
		return store.ErrProductNotFound
	}
	s.ledger.AddToCart(p)
	s.persistCart()
	return nil
}

// UpdateQuantity устанавливает количество позиции корзины.
func (s *Service) UpdateQuantity(ctx context.Context, productID, quantity int64) {
	s.ledger.UpdateQuantity(productID, quantity)
	s.persistCart()
}

// RemoveFromCart удаляет позицию корзины.
func (s *Service) RemoveFromCart(ctx context.Context, productID int64) {
	s.ledger.RemoveFromCart(productID)
	s.persistCart()
}

// ResetCart начинает новый заказ: очищает корзину и покупателя.
func (s *Service) ResetCart(ctx context.Context) {
	s.ledger.ResetCart()
	s.persistCart()
}

// Cart возвращает корзину, её сумму и покупателя текущего заказа.
func (s *Service) Cart() ([]model.CartLine, decimal.Decimal, model.Customer) {
	return s.ledger.Cart(), s.ledger.CartTotal(), s.ledger.Customer()
}

// SetCustomer запоминает покупателя текущего заказа.
func (s *Service) SetCustomer(name, phone string) {
	s.ledger.SetCustomer(name, phone)
}

// CompleteOrder оформляет корзину заказом с немедленной оплатой.
func (s *Service) CompleteOrder(ctx context.Context) (model.Order, error) {
	order, err := s.ledger.CompleteOrder(false, 0)
	if err != nil {
		return model.Order{}, err
	}
	s.persistOrders()
	s.persistCart()
	return order, nil
}

// DebtForm содержит данные формы создания долга. Сумма и дата возврата
// приходят строками и разбираются при создании.
type DebtForm struct {
	CustomerName  string
	CustomerPhone string
	Amount        string
	DueDate       string
	Note          string
}

// CreateDebt создаёт долг и оформляет корзину заказом с отложенной
// оплатой как одну транзакцию.
func (s *Service) CreateDebt(ctx context.Context, form DebtForm) (model.Debt, model.Order, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(form.Amount))
	if err != nil {
		return model.Debt{}, model.Order{}, store.ErrDebtAmountNotPositive
	}

	var dueDate *time.Time
	if v := strings.TrimSpace(form.DueDate); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return model.Debt{}, model.Order{}, ErrInvalidDueDate
		}
		dueDate = &t
	}

	debt, order, err := s.ledger.CreateDebt(form.CustomerName, form.CustomerPhone, amount, dueDate, form.Note)
	if err != nil {
		return model.Debt{}, model.Order{}, err
	}

	s.persistDebts()
	s.persistOrders()
	s.persistCart()
	return debt, order, nil
}

// MarkDebtPaid отмечает долг оплаченным с каскадом на заказы.
func (s *Service) MarkDebtPaid(ctx context.Context, debtID int64) bool {
	if !s.ledger.MarkDebtPaid(debtID) {
		return false
	}
	s.persistDebts()
	s.persistOrders()
	return true
}

// Orders возвращает список заказов, новые первыми.
func (s *Service) Orders() []model.Order {
	return s.ledger.Orders()
}

// Debts возвращает список долгов, новые первыми.
func (s *Service) Debts() []model.Debt {
	return s.ledger.Debts()
}

// DeleteOrder удаляет заказ без каскада на долги.
func (s *Service) DeleteOrder(ctx context.Context, id int64) bool {
	if !s.ledger.DeleteOrder(id) {
		return false
	}
	s.persistOrders()
	return true
}

// RemoveDebt удаляет долг без каскада на заказы.
func (s *Service) RemoveDebt(ctx context.Context, id int64) bool {
	if !s.ledger.RemoveDebt(id) {
		return false
	}
	s.persistDebts()
	return true
}

// Analytics строит отчёт по заказам в заданном окне дат.
func (s *Service) Analytics(from, to *time.Time) analytics.Report {
	return analytics.Build(s.ledger.Orders(), s.ledger.Products(), analytics.Filter{Start: from, End: to}, time.Now())
}

// Rate возвращает текущий обменный курс.
func (s *Service) Rate() decimal.Decimal {
	return s.ledger.Rate()
}

// StartRateUpdates запускает периодическое обновление курса. Процесс
// останавливается вместе с контекстом приложения.
func (s *Service) StartRateUpdates(ctx context.Context) {
	if s.rates == nil {
		return
	}

	go func() {
		s.refreshRate(ctx)

		ticker := time.NewTicker(rateRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refreshRate(ctx)
			}
		}
	}()
}

func (s *Service) refreshRate(ctx context.Context) {
	rate, err := s.rates.Fetch(ctx)
	if err != nil {
		return
	}
	s.ledger.SetRate(rate)
	s.persist(storage.KeyRate, rate)
}

// Backup собирает полную резервную копию состояния кассы.
func (s *Service) Backup() model.Backup {
	return model.Backup{
		Meta: model.BackupMeta{
			App:       model.BackupApp,
			Version:   model.BackupVersion,
			Timestamp: time.Now(),
		},
		Products: s.ledger.Products(),
		Orders:   s.ledger.Orders(),
		Debts:    s.ledger.Debts(),
		Cart:     s.ledger.Cart(),
		Rate:     s.ledger.Rate(),
	}
}

type rawBackup struct {
	Meta     *model.BackupMeta `json:"meta"`
	Products json.RawMessage   `json:"products"`
	Orders   json.RawMessage   `json:"orders"`
	Debts    json.RawMessage   `json:"debts"`
	Cart     json.RawMessage   `json:"cart"`
	Rate     json.RawMessage   `json:"rate"`
}

// Restore восстанавливает состояние из файла резервной копии. Формат
// проверяется до изменения состояния: некорректный файл отклоняется
// без частичной записи. Разделы, отсутствующие в копии, сохраняют
// текущие значения.
func (s *Service) Restore(ctx context.Context, data []byte) error {
	var backup rawBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return ErrBackupFormat
	}
	if backup.Meta == nil {
		return ErrBackupFormat
	}

	products := s.ledger.Products()
	if isArray(backup.Products) {
		var restored []model.Product
		if err := json.Unmarshal(backup.Products, &restored); err == nil && len(restored) > 0 {
			products = restored
		}
	}

	orders := s.ledger.Orders()
	if isArray(backup.Orders) {
		orders = store.NormalizeOrders(backup.Orders)
	}

	debts := s.ledger.Debts()
	if isArray(backup.Debts) {
		debts = store.NormalizeDebts(backup.Debts)
	}

	cart := s.ledger.Cart()
	if isArray(backup.Cart) {
		cart = store.NormalizeCart(backup.Cart)
	}

	rate := s.ledger.Rate()
	if len(backup.Rate) > 0 && string(backup.Rate) != "null" {
		var restored decimal.Decimal
		if err := json.Unmarshal(backup.Rate, &restored); err == nil {
			rate = restored
		}
	}

	s.ledger.Replace(products, orders, debts, cart, rate)

	s.persist(storage.KeyProducts, products)
	s.persistOrders()
	s.persistDebts()
	s.persistCart()
	s.persist(storage.KeyRate, rate)

	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func (s *Service) persistOrders() {
	s.persist(storage.KeyOrders, s.ledger.Orders())
}

func (s *Service) persistDebts() {
	s.persist(storage.KeyDebts, s.ledger.Debts())
}

func (s *Service) persistCart() {
	s.persist(storage.KeyCart, s.ledger.Cart())
}

// persist пишет ключ локально и асинхронно в зеркало. Записи не
// транзакционны между ключами и не прерывают операцию при ошибке.
func (s *Service) persist(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal state", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.storage.Set(key, data); err != nil {
		s.logger.Error("write state", zap.String("key", key), zap.Error(err))
	}

	if s.mirror == nil {
		return
	}
	go func() {
		mirrorCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.mirror.SaveDocument(mirrorCtx, key, data); err != nil {
			s.logger.Warn("mirror write failed", zap.String("key", key), zap.Error(err))
		}
	}()
}
