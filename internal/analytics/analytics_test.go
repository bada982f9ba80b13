package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/electromax/electromax-pos/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeOrder(id int64, date time.Time, total string, items ...model.CartLine) model.Order {
	return model.Order{
		ID:            id,
		Date:          date,
		Items:         items,
		Total:         dec(total),
		PaymentStatus: model.PaymentStatusPaid,
	}
}

func line(name, category, price string, qty int64) model.CartLine {
	return model.CartLine{
		Product:  model.Product{Name: name, Category: category, Price: dec(price)},
		Quantity: qty,
	}
}

func TestBuildDateWindow(t *testing.T) {
	now := time.Date(2024, 11, 16, 15, 0, 0, 0, time.Local)
	start := time.Date(2024, 11, 10, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 11, 16, 23, 59, 59, 0, time.Local)

	orders := []model.Order{
		makeOrder(1, time.Date(2024, 11, 12, 10, 0, 0, 0, time.Local), "100"),
		makeOrder(2, time.Date(2024, 11, 16, 11, 0, 0, 0, time.Local), "50"),
		makeOrder(3, time.Date(2024, 10, 1, 10, 0, 0, 0, time.Local), "999"),
	}

	report := Build(orders, nil, Filter{Start: &start, End: &end}, now)

	if report.TotalOrders != 2 {
		t.Fatalf("totalOrders = %d, want 2", report.TotalOrders)
	}
	if !report.TotalRevenue.Equal(dec("150")) {
		t.Fatalf("totalRevenue = %s, want 150", report.TotalRevenue)
	}
	if !report.AvgOrderValue.Equal(dec("75")) {
		t.Fatalf("avgOrderValue = %s, want totalRevenue/2", report.AvgOrderValue)
	}
	if report.TodayOrders != 1 || !report.TodayRevenue.Equal(dec("50")) {
		t.Fatalf("today = %d/%s, want 1/50", report.TodayOrders, report.TodayRevenue)
	}
}

func TestBuildInclusiveBounds(t *testing.T) {
	now := time.Date(2024, 11, 20, 12, 0, 0, 0, time.Local)
	edge := time.Date(2024, 11, 10, 0, 0, 0, 0, time.Local)

	orders := []model.Order{makeOrder(1, edge, "10")}

	report := Build(orders, nil, Filter{Start: &edge, End: &edge}, now)
	if report.TotalOrders != 1 {
		t.Fatalf("window bounds must be inclusive, got %d orders", report.TotalOrders)
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	report := Build(nil, nil, Filter{}, time.Now())

	if report.TotalOrders != 0 || !report.TotalRevenue.IsZero() {
		t.Fatalf("empty input must produce zero totals: %+v", report)
	}
	if !report.AvgOrderValue.IsZero() {
		t.Fatalf("avgOrderValue must be 0 without orders, not a division error")
	}
	if report.TopProducts == nil || report.CategoryRevenue == nil {
		t.Fatalf("aggregates must default to empty, not nil")
	}
}

func TestBuildTopProducts(t *testing.T) {
	now := time.Now()

	var orders []model.Order
	// 12 товаров с разной выручкой: в отчёт попадают десять самых доходных.
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("Товар %d", i)
		price := fmt.Sprintf("%d", i)
		orders = append(orders, makeOrder(int64(i), now, price, line(name, "", price, 1)))
	}

	report := Build(orders, nil, Filter{}, now)

	if len(report.TopProducts) != 10 {
		t.Fatalf("topProducts must be truncated to 10, got %d", len(report.TopProducts))
	}
	if report.TopProducts[0].Name != "Товар 12" {
		t.Fatalf("top product = %q, want the highest revenue first", report.TopProducts[0].Name)
	}
	for i := 1; i < len(report.TopProducts); i++ {
		if report.TopProducts[i].Revenue.GreaterThan(report.TopProducts[i-1].Revenue) {
			t.Fatalf("topProducts not sorted by revenue: %+v", report.TopProducts)
		}
	}
}

func TestBuildCategoryRevenueUsesCurrentCatalog(t *testing.T) {
	now := time.Now()

	// Категория позиции берётся из актуального каталога, а не из заказа.
	products := []model.Product{
		{ID: 1, Name: "Кабель ВВГ", Category: "Кабели"},
	}
	orders := []model.Order{
		makeOrder(1, now, "20",
			line("Кабель ВВГ", "Старая категория", "10", 2)),
		makeOrder(2, now, "5",
			line("Неизвестный товар", "", "5", 1)),
	}

	report := Build(orders, products, Filter{}, now)

	if got := report.CategoryRevenue["Кабели"]; !got.Equal(dec("20")) {
		t.Fatalf("category revenue = %s, want 20", got)
	}
	if got := report.CategoryRevenue[fallbackCategory]; !got.Equal(dec("5")) {
		t.Fatalf("unknown product must aggregate under %q, got %s", fallbackCategory, got)
	}
}
