// Package analytics считает сводные показатели продаж по заказам.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electromax/electromax-pos/internal/model"
)

// Категория для позиций, которых нет в текущем каталоге.
const fallbackCategory = "Прочее"

const topProductsLimit = 10

// Filter задаёт окно по дате заказа, границы включительно.
// Отсутствующая граница не ограничивает окно с этой стороны.
type Filter struct {
	Start *time.Time
	End   *time.Time
}

func (f Filter) contains(t time.Time) bool {
	if f.Start != nil && t.Before(*f.Start) {
		return false
	}
	if f.End != nil && t.After(*f.End) {
		return false
	}
	return true
}

// ProductStat содержит сводку по одному товару.
type ProductStat struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Report содержит сводные показатели продаж за выбранное окно.
type Report struct {
	TotalRevenue    decimal.Decimal            `json:"totalRevenue"`
	TotalOrders     int                        `json:"totalOrders"`
	AvgOrderValue   decimal.Decimal            `json:"avgOrderValue"`
	TodayRevenue    decimal.Decimal            `json:"todayRevenue"`
	TodayOrders     int                        `json:"todayOrders"`
	TopProducts     []ProductStat              `json:"topProducts"`
	CategoryRevenue map[string]decimal.Decimal `json:"categoryRevenue"`
}

// Build строит отчёт по заказам, попавшим в окно фильтра. Категория
// позиции берётся из текущего каталога по названию товара: исторические
// заказы отражают актуальную категоризацию. Повреждённые данные дают
// нулевые значения, функция чистая и не изменяет входные списки.
func Build(orders []model.Order, products []model.Product, filter Filter, now time.Time) Report {
	report := Report{
		TotalRevenue:    decimal.Zero,
		AvgOrderValue:   decimal.Zero,
		TodayRevenue:    decimal.Zero,
		TopProducts:     []ProductStat{},
		CategoryRevenue: map[string]decimal.Decimal{},
	}

	categories := make(map[string]string, len(products))
	for _, p := range products {
		categories[p.Name] = p.Category
	}

	nowYear, nowMonth, nowDay := now.Date()
	stats := make(map[string]*ProductStat)

	for _, o := range orders {
		if !filter.contains(o.Date) {
			continue
		}

		report.TotalOrders++
		report.TotalRevenue = report.TotalRevenue.Add(o.Total)

		// Сравнение по локальному календарному дню, не по скользящим суткам.
		y, m, d := o.Date.In(now.Location()).Date()
		if y == nowYear && m == nowMonth && d == nowDay {
			report.TodayOrders++
			report.TodayRevenue = report.TodayRevenue.Add(o.Total)
		}

		for _, item := range o.Items {
			revenue := item.LineTotal()

			st, ok := stats[item.Name]
			if !ok {
				st = &ProductStat{Name: item.Name, Revenue: decimal.Zero}
				stats[item.Name] = st
			}
			st.Quantity += item.Quantity
			st.Revenue = st.Revenue.Add(revenue)

			category, ok := categories[item.Name]
			if !ok || category == "" {
				category = fallbackCategory
			}
			current, ok := report.CategoryRevenue[category]
			if !ok {
				current = decimal.Zero
			}
			report.CategoryRevenue[category] = current.Add(revenue)
		}
	}

	if report.TotalOrders > 0 {
		report.AvgOrderValue = report.TotalRevenue.Div(decimal.NewFromInt(int64(report.TotalOrders)))
	}

	for _, st := range stats {
		report.TopProducts = append(report.TopProducts, *st)
	}
	sort.Slice(report.TopProducts, func(a, b int) bool {
		ra, rb := report.TopProducts[a], report.TopProducts[b]
		if !ra.Revenue.Equal(rb.Revenue) {
			return ra.Revenue.GreaterThan(rb.Revenue)
		}
		return ra.Name < rb.Name
	})
	if len(report.TopProducts) > topProductsLimit {
		report.TopProducts = report.TopProducts[:topProductsLimit]
	}

	return report
}
