package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/electromax/electromax-pos/internal/analytics"
	"github.com/electromax/electromax-pos/internal/model"
	"github.com/electromax/electromax-pos/internal/service"
	"github.com/electromax/electromax-pos/internal/store"
)

type stubService struct {
	products []model.Product
	matches  []service.ProductMatch
	editErr  error

	addErr       error
	lastQuantity int64

	cartItems []model.CartLine
	cartTotal decimal.Decimal
	customer  model.Customer

	completeOrderResp model.Order
	completeOrderErr  error

	createDebtDebt  model.Debt
	createDebtOrder model.Order
	createDebtErr   error

	markPaidOK    bool
	deleteOrderOK bool
	removeDebtOK  bool

	orders []model.Order
	debts  []model.Debt

	report analytics.Report
	rate   decimal.Decimal

	backup     model.Backup
	restoreErr error
}

func (s *stubService) Products() []model.Product { return s.products }

func (s *stubService) SearchProducts(query string) []service.ProductMatch { return s.matches }

func (s *stubService) EditProduct(ctx context.Context, id int64, name string, price decimal.Decimal) error {
	return s.editErr
}

func (s *stubService) AddToCart(ctx context.Context, productID int64) error { return s.addErr }

func (s *stubService) UpdateQuantity(ctx context.Context, productID, quantity int64) {
	s.lastQuantity = quantity
}

func (s *stubService) RemoveFromCart(ctx context.Context, productID int64) {}

func (s *stubService) ResetCart(ctx context.Context) {}

func (s *stubService) Cart() ([]model.CartLine, decimal.Decimal, model.Customer) {
	return s.cartItems, s.cartTotal, s.customer
}

func (s *stubService) SetCustomer(name, phone string) {}

func (s *stubService) CompleteOrder(ctx context.Context) (model.Order, error) {
	return s.completeOrderResp, s.completeOrderErr
}

func (s *stubService) CreateDebt(ctx context.Context, form service.DebtForm) (model.Debt, model.Order, error) {
	return s.createDebtDebt, s.createDebtOrder, s.createDebtErr
}

func (s *stubService) MarkDebtPaid(ctx context.Context, debtID int64) bool { return s.markPaidOK }

func (s *stubService) Orders() []model.Order { return s.orders }

func (s *stubService) Debts() []model.Debt { return s.debts }

func (s *stubService) DeleteOrder(ctx context.Context, id int64) bool { return s.deleteOrderOK }

func (s *stubService) RemoveDebt(ctx context.Context, id int64) bool { return s.removeDebtOK }

func (s *stubService) Analytics(from, to *time.Time) analytics.Report { return s.report }

func (s *stubService) Rate() decimal.Decimal { return s.rate }

func (s *stubService) Backup() model.Backup { return s.backup }

func (s *stubService) Restore(ctx context.Context, data []byte) error { return s.restoreErr }

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger).SetupRouter()
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec.Result()
}

func TestGetProducts_RankedResponse(t *testing.T) {
	svc := &stubService{
		matches: []service.ProductMatch{
			{
				Product: model.Product{ID: 1, Name: "Телефон", Price: decimal.NewFromInt(100)},
				Score:   10,
			},
		},
	}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodGet, "/api/products?q=тел", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp []productMatchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Name != "Телефон" || resp[0].Score != 10 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEditProduct_NotFound(t *testing.T) {
	svc := &stubService{editErr: store.ErrProductNotFound}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPut, "/api/products/999", editProductRequest{
		Name:  "Розетка",
		Price: decimal.NewFromInt(5),
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestEditProduct_RejectsBlankName(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPut, "/api/products/1", editProductRequest{
		Price: decimal.NewFromInt(5),
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestAddCartItem_RequiresProductID(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/cart/items", map[string]any{})
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	svc := &stubService{addErr: store.ErrProductNotFound}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: 42})
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestUpdateCartItem_PassesQuantity(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPut, "/api/cart/items/1", quantityRequest{Quantity: 3})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if svc.lastQuantity != 3 {
		t.Fatalf("quantity = %d, want 3", svc.lastQuantity)
	}
}

func TestCompleteOrder_Created(t *testing.T) {
	svc := &stubService{
		completeOrderResp: model.Order{ID: 1700000000000, Total: decimal.NewFromInt(100)},
	}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/orders", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var order model.Order
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.ID != 1700000000000 {
		t.Fatalf("order id = %d, want 1700000000000", order.ID)
	}
}

func TestCompleteOrder_ConflictOnEmptyCart(t *testing.T) {
	svc := &stubService{completeOrderErr: store.ErrCartEmpty}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/orders", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestCreateDebt_BadAmount(t *testing.T) {
	svc := &stubService{createDebtErr: store.ErrDebtAmountNotPositive}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/debts", debtRequest{
		CustomerName: "Карим",
		Amount:       "-5",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestCreateDebt_Created(t *testing.T) {
	svc := &stubService{
		createDebtDebt:  model.Debt{ID: 2, CustomerName: "Карим", Amount: decimal.NewFromInt(10)},
		createDebtOrder: model.Order{ID: 1, DebtID: 2, PaymentStatus: model.PaymentStatusDue},
	}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/debts", debtRequest{
		CustomerName: "Карим",
		Amount:       "10",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp debtResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.DebtID != resp.Debt.ID {
		t.Fatalf("order must reference debt: %+v", resp)
	}
}

func TestMarkDebtPaid_NotFound(t *testing.T) {
	svc := &stubService{markPaidOK: false}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodPost, "/api/debts/99/paid", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestGetAnalytics_BadBound(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodGet, "/api/analytics?from=вчера", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestRestoreBackup_BadFormat(t *testing.T) {
	svc := &stubService{restoreErr: service.ErrBackupFormat}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/backup/restore", strings.NewReader(`{"orders":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestExport_KnownAndUnknownKinds(t *testing.T) {
	svc := &stubService{
		products: []model.Product{{ID: 1, Name: "Кабель"}},
	}
	router := newTestRouter(t, svc)

	res := doRequest(t, router, http.MethodGet, "/api/export/products", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if cd := res.Header.Get("Content-Disposition"); !strings.Contains(cd, "products-") {
		t.Fatalf("content-disposition = %q, want attachment", cd)
	}

	res = doRequest(t, router, http.MethodGet, "/api/export/everything", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}
