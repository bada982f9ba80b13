// Package store владеет состоянием кассы: каталогом, корзиной, заказами
// и долгами. Все мутации выполняются именованными операциями и сохраняют
// инварианты предметной области.
package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electromax/electromax-pos/internal/model"
)

// ErrCartEmpty возвращается при попытке оформить заказ с пустой корзиной.
var (
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCustomerNameRequired возвращается при создании долга без имени покупателя.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// ErrDebtAmountNotPositive возвращается при создании долга с нулевой или отрицательной суммой.
	ErrDebtAmountNotPositive = errors.New("debt amount must be positive")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
)

// Формат отображаемой даты, как в исходных данных (ru-RU).
const dateDisplayLayout = "02.01.2006, 15:04:05"

var timeNow = time.Now

// Ledger хранит состояние кассы в памяти. Все операции потокобезопасны.
type Ledger struct {
	mu       sync.RWMutex
	products []model.Product
	cart     []model.CartLine
	customer model.Customer
	orders   []model.Order
	debts    []model.Debt
	rate     decimal.Decimal
	lastID   int64
}

// NewLedger создаёт пустое состояние кассы.
func NewLedger() *Ledger {
	return &Ledger{}
}

// nextID выдаёт уникальный монотонный идентификатор на основе времени.
func (l *Ledger) nextID() int64 {
	id := timeNow().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

// SetProducts заменяет каталог товаров.
func (l *Ledger) SetProducts(products []model.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = append([]model.Product(nil), products...)
}

// Products возвращает копию каталога.
func (l *Ledger) Products() []model.Product {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Product(nil), l.products...)
}

// ProductByID возвращает товар каталога по идентификатору.
func (l *Ledger) ProductByID(id int64) (model.Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// EditProduct переписывает название и цену товара каталога.
func (l *Ledger) EditProduct(id int64, name string, price decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.products {
		if l.products[i].ID == id {
			l.products[i].Name = name
			l.products[i].Price = price
			return nil
		}
	}
	return ErrProductNotFound
}

// AddToCart добавляет товар в корзину: существующая позиция увеличивает
// количество, новая добавляется с количеством 1.
func (l *Ledger) AddToCart(p model.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.cart {
		if l.cart[i].ID == p.ID {
			l.cart[i].Quantity++
			return
		}
	}
	l.cart = append(l.cart, model.CartLine{Product: p, Quantity: 1})
}

// UpdateQuantity устанавливает количество позиции. Количество ≤ 0 удаляет
// позицию: нулевые и отрицательные строки в корзине не хранятся.
func (l *Ledger) UpdateQuantity(productID, quantity int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quantity <= 0 {
		l.removeLineLocked(productID)
		return
	}
	for i := range l.cart {
		if l.cart[i].ID == productID {
			l.cart[i].Quantity = quantity
			return
		}
	}
}

// RemoveFromCart удаляет позицию корзины по идентификатору товара.
func (l *Ledger) RemoveFromCart(productID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLineLocked(productID)
}

func (l *Ledger) removeLineLocked(productID int64) {
	filtered := l.cart[:0]
	for _, line := range l.cart {
		if line.ID != productID {
			filtered = append(filtered, line)
		}
	}
	l.cart = filtered
}

// ResetCart очищает корзину и данные покупателя для нового заказа.
func (l *Ledger) ResetCart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cart = nil
	l.customer = model.Customer{}
}

// Cart возвращает копию корзины.
func (l *Ledger) Cart() []model.CartLine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.CartLine(nil), l.cart...)
}

// CartTotal возвращает сумму корзины.
func (l *Ledger) CartTotal() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cartTotal(l.cart)
}

func cartTotal(cart []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range cart {
		total = total.Add(line.LineTotal())
	}
	return total
}

// SetCustomer запоминает покупателя текущего заказа.
func (l *Ledger) SetCustomer(name, phone string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.customer = model.Customer{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
}

// Customer возвращает покупателя текущего заказа.
func (l *Ledger) Customer() model.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.customer
}

// CompleteOrder фиксирует корзину в новый заказ. Позиции и сумма
// снимаются на момент оформления, корзина и покупатель очищаются,
// заказ добавляется в начало списка.
func (l *Ledger) CompleteOrder(asDebt bool, debtID int64) (model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completeOrderLocked(asDebt, debtID)
}

func (l *Ledger) completeOrderLocked(asDebt bool, debtID int64) (model.Order, error) {
	if len(l.cart) == 0 {
		return model.Order{}, ErrCartEmpty
	}

	now := timeNow()
	order := model.Order{
		ID:            l.nextID(),
		Date:          now,
		DateFormatted: now.Format(dateDisplayLayout),
		Items:         append([]model.CartLine(nil), l.cart...),
		Total:         cartTotal(l.cart),
		PaymentStatus: model.PaymentStatusPaid,
	}
	if asDebt {
		order.PaymentStatus = model.PaymentStatusDue
		order.DebtID = debtID
	}
	if l.customer.Name != "" || l.customer.Phone != "" {
		c := l.customer
		order.Customer = &c
	}

	l.orders = append([]model.Order{order}, l.orders...)
	l.cart = nil
	l.customer = model.Customer{}

	return order, nil
}

// CreateDebt создаёт долг и оформляет текущую корзину заказом с отложенной
// оплатой. Операция атомарна: либо появляются и долг, и заказ, либо ни то,
// ни другое.
func (l *Ledger) CreateDebt(customerName, customerPhone string, amount decimal.Decimal, dueDate *time.Time, note string) (model.Debt, model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(customerName) == "" {
		return model.Debt{}, model.Order{}, ErrCustomerNameRequired
	}
	if !amount.IsPositive() {
		return model.Debt{}, model.Order{}, ErrDebtAmountNotPositive
	}
	if len(l.cart) == 0 {
		return model.Debt{}, model.Order{}, ErrCartEmpty
	}

	debt := model.Debt{
		ID:            l.nextID(),
		CreatedAt:     timeNow(),
		CustomerName:  strings.TrimSpace(customerName),
		CustomerPhone: strings.TrimSpace(customerPhone),
		Amount:        amount,
		DueDate:       dueDate,
		Note:          note,
	}

	order, err := l.completeOrderLocked(true, debt.ID)
	if err != nil {
		return model.Debt{}, model.Order{}, err
	}

	l.debts = append([]model.Debt{debt}, l.debts...)
	return debt, order, nil
}

// MarkDebtPaid отмечает долг оплаченным и переводит все заказы с этим
// долгом в статус "paid". Для несуществующего долга ничего не делает.
func (l *Ledger) MarkDebtPaid(debtID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := false
	now := timeNow()
	for i := range l.debts {
		if l.debts[i].ID == debtID {
			found = true
			if !l.debts[i].Paid {
				l.debts[i].Paid = true
				l.debts[i].PaidAt = &now
			}
			break
		}
	}
	if !found {
		return false
	}

	for i := range l.orders {
		if l.orders[i].DebtID == debtID && l.orders[i].PaymentStatus != model.PaymentStatusPaid {
			l.orders[i].PaymentStatus = model.PaymentStatusPaid
			l.orders[i].PaidAt = &now
		}
	}
	return true
}

// Orders возвращает копию списка заказов, новые первыми.
func (l *Ledger) Orders() []model.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Order(nil), l.orders...)
}

// Debts возвращает копию списка долгов, новые первыми.
func (l *Ledger) Debts() []model.Debt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Debt(nil), l.debts...)
}

// DeleteOrder удаляет заказ. Связанный долг не затрагивается.
func (l *Ledger) DeleteOrder(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.orders {
		if l.orders[i].ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveDebt удаляет долг. Заказы, ссылающиеся на него, не затрагиваются.
func (l *Ledger) RemoveDebt(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.debts {
		if l.debts[i].ID == id {
			l.debts = append(l.debts[:i], l.debts[i+1:]...)
			return true
		}
	}
	return false
}

// Rate возвращает текущий обменный курс.
func (l *Ledger) Rate() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rate
}

// SetRate устанавливает обменный курс.
func (l *Ledger) SetRate(rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = rate
}

// Replace заменяет всё состояние кассы за один проход. Используется при
// восстановлении из резервной копии.
func (l *Ledger) Replace(products []model.Product, orders []model.Order, debts []model.Debt, cart []model.CartLine, rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = append([]model.Product(nil), products...)
	l.orders = append([]model.Order(nil), orders...)
	l.debts = append([]model.Debt(nil), debts...)
	l.cart = append([]model.CartLine(nil), cart...)
	l.customer = model.Customer{}
	l.rate = rate

	// Новые идентификаторы не должны пересекаться с восстановленными.
	for _, o := range l.orders {
		if o.ID > l.lastID {
			l.lastID = o.ID
		}
	}
	for _, d := range l.debts {
		if d.ID > l.lastID {
			l.lastID = d.ID
		}
	}
}
