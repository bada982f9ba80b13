// Package rates предоставляет обменный курс доллара к суму.
package rates

import (
	"context"

	"github.com/shopspring/decimal"
)

// Получение реального курса за рамками системы: источник — заглушка
// с фиксированным значением.
var stubRate = decimal.NewFromInt(12650)

// Client возвращает текущий обменный курс USD → UZS.
type Client struct{}

// NewClient создаёт клиент курса валют.
func NewClient() *Client {
	return &Client{}
}

// Fetch возвращает текущий курс. Учитывает отмену контекста, чтобы
// периодическое обновление останавливалось вместе с приложением.
func (c *Client) Fetch(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return stubRate, nil
}
