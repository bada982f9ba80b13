package store

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electromax/electromax-pos/internal/model"
)

// Сырые записи из хранилища разбираются через json.RawMessage: данные
// могли быть записаны старыми версиями кассы и содержать числа строками,
// пропущенные поля и мусор.

type rawLine struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Price    json.RawMessage `json:"price"`
	Category string          `json:"category"`
	Stock    json.RawMessage `json:"stock"`
	Quantity json.RawMessage `json:"quantity"`
}

type rawOrder struct {
	ID            json.RawMessage `json:"id"`
	Date          json.RawMessage `json:"date"`
	DateFormatted string          `json:"dateFormatted"`
	Items         []rawLine       `json:"items"`
	Total         json.RawMessage `json:"total"`
	Customer      json.RawMessage `json:"customer"`
	PaymentStatus string          `json:"paymentStatus"`
	DebtID        json.RawMessage `json:"debtId"`
	PaidAt        json.RawMessage `json:"paidAt"`
}

type rawDebt struct {
	ID            json.RawMessage `json:"id"`
	CreatedAt     json.RawMessage `json:"createdAt"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Amount        json.RawMessage `json:"amount"`
	DueDate       json.RawMessage `json:"dueDate"`
	Note          string          `json:"note"`
	Paid          json.RawMessage `json:"paid"`
	PaidAt        json.RawMessage `json:"paidAt"`
}

// NormalizeOrders восстанавливает список заказов из произвольного
// сохранённого значения. Не-массив даёт пустой список; количество и цены
// приводятся к числам, недостающая сумма пересчитывается, недостающая
// дата заполняется текущим временем. Сохранённая числовая сумма не
// пересчитывается.
func NormalizeOrders(raw []byte) []model.Order {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return []model.Order{}
	}

	orders := make([]model.Order, 0, len(records))
	for _, rec := range records {
		var ro rawOrder
		if err := json.Unmarshal(rec, &ro); err != nil {
			continue
		}

		items := make([]model.CartLine, 0, len(ro.Items))
		for _, rl := range ro.Items {
			items = append(items, normalizeLine(rl))
		}

		o := model.Order{
			ID:            coerceInt(ro.ID),
			Items:         items,
			DateFormatted: ro.DateFormatted,
			PaymentStatus: model.PaymentStatusPaid,
			DebtID:        coerceInt(ro.DebtID),
		}

		if total, ok := coerceDecimal(ro.Total); ok {
			o.Total = total
		} else {
			sum := decimal.Zero
			for _, it := range items {
				sum = sum.Add(it.LineTotal())
			}
			o.Total = sum
		}

		o.Date = coerceTime(ro.Date, timeNow())
		if o.DateFormatted == "" {
			o.DateFormatted = o.Date.Format(dateDisplayLayout)
		}

		if ro.PaymentStatus == string(model.PaymentStatusDue) {
			o.PaymentStatus = model.PaymentStatusDue
		}

		var customer model.Customer
		if len(ro.Customer) > 0 && json.Unmarshal(ro.Customer, &customer) == nil && customer.Name != "" {
			o.Customer = &customer
		}
		if t, ok := coerceOptionalTime(ro.PaidAt); ok {
			o.PaidAt = &t
		}

		orders = append(orders, o)
	}

	return orders
}

// NormalizeDebts восстанавливает список долгов: сумма приводится к числу
// (мусор даёт 0), недостающая дата создания заполняется текущим временем.
// Долги с нулевой суммой из повреждённых данных не отбрасываются — отказ
// от нулевых сумм действует только при создании нового долга.
func NormalizeDebts(raw []byte) []model.Debt {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return []model.Debt{}
	}

	debts := make([]model.Debt, 0, len(records))
	for _, rec := range records {
		var rd rawDebt
		if err := json.Unmarshal(rec, &rd); err != nil {
			continue
		}

		d := model.Debt{
			ID:            coerceInt(rd.ID),
			CustomerName:  rd.CustomerName,
			CustomerPhone: rd.CustomerPhone,
			Note:          rd.Note,
		}
		d.Amount, _ = coerceDecimal(rd.Amount)
		d.CreatedAt = coerceTime(rd.CreatedAt, timeNow())
		if t, ok := coerceOptionalTime(rd.DueDate); ok {
			d.DueDate = &t
		}
		d.Paid = coerceBool(rd.Paid)
		if t, ok := coerceOptionalTime(rd.PaidAt); ok {
			d.PaidAt = &t
		}

		debts = append(debts, d)
	}

	return debts
}

// NormalizeCart восстанавливает снимок корзины с приведением количества
// и цен к числам.
func NormalizeCart(raw []byte) []model.CartLine {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return []model.CartLine{}
	}

	cart := make([]model.CartLine, 0, len(records))
	for _, rec := range records {
		var rl rawLine
		if err := json.Unmarshal(rec, &rl); err != nil {
			continue
		}
		cart = append(cart, normalizeLine(rl))
	}

	return cart
}

func normalizeLine(rl rawLine) model.CartLine {
	line := model.CartLine{
		Product: model.Product{
			ID:       coerceInt(rl.ID),
			Name:     rl.Name,
			Unit:     rl.Unit,
			Category: rl.Category,
			Stock:    coerceInt(rl.Stock),
		},
		Quantity: coerceInt(rl.Quantity),
	}
	line.Price, _ = coerceDecimal(rl.Price)
	return line
}

// coerceDecimal приводит JSON-значение к decimal: принимает числа и
// числовые строки, всё остальное даёт 0 и ok=false.
func coerceDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func coerceInt(raw json.RawMessage) int64 {
	d, ok := coerceDecimal(raw)
	if !ok {
		return 0
	}
	return d.IntPart()
}

func coerceBool(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

// coerceTime разбирает дату в RFC3339, при неудаче возвращает fallback.
func coerceTime(raw json.RawMessage, fallback time.Time) time.Time {
	if t, ok := coerceOptionalTime(raw); ok {
		return t
	}
	return fallback
}

func coerceOptionalTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
