// Package model содержит доменные сущности кассовой системы ElectroMax.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Исходные данные хранят цены и суммы как JSON-числа.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product описывает товар каталога.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
	Stock    int64           `json:"stock,omitempty"`
}

// CartLine описывает позицию корзины: товар и его количество.
type CartLine struct {
	Product
	Quantity int64 `json:"quantity"`
}

// LineTotal возвращает стоимость позиции с учётом количества.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPaid PaymentStatus = "paid"
	PaymentStatusDue  PaymentStatus = "due"
)

// Customer содержит контактные данные покупателя.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Order описывает оформленный заказ. Позиции и суммы фиксируются на момент
// оформления и не зависят от последующих правок каталога.
type Order struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	DateFormatted string          `json:"dateFormatted,omitempty"`
	Items         []CartLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Customer      *Customer       `json:"customer,omitempty"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	DebtID        int64           `json:"debtId,omitempty"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Debt описывает долг покупателя по заказу с отложенной оплатой.
type Debt struct {
	ID            int64           `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Note          string          `json:"note,omitempty"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// BackupMeta содержит служебную информацию файла резервной копии.
type BackupMeta struct {
	App       string    `json:"app"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"ts"`
}

// Backup описывает полную резервную копию состояния кассы.
type Backup struct {
	Meta     BackupMeta      `json:"meta"`
	Products []Product       `json:"products"`
	Orders   []Order         `json:"orders"`
	Debts    []Debt          `json:"debts"`
	Cart     []CartLine      `json:"cart"`
	Rate     decimal.Decimal `json:"rate"`
}

// Идентификаторы формата резервной копии.
const (
	BackupApp     = "electromax"
	BackupVersion = 1
)
