// Package handler содержит HTTP-обработчики API кассы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/electromax/electromax-pos/internal/analytics"
	"github.com/electromax/electromax-pos/internal/model"
	"github.com/electromax/electromax-pos/internal/search"
	"github.com/electromax/electromax-pos/internal/service"
	"github.com/electromax/electromax-pos/internal/store"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Products() []model.Product
	SearchProducts(query string) []service.ProductMatch
	EditProduct(ctx context.Context, id int64, name string, price decimal.Decimal) error
	AddToCart(ctx context.Context, productID int64) error
	UpdateQuantity(ctx context.Context, productID, quantity int64)
	RemoveFromCart(ctx context.Context, productID int64)
	ResetCart(ctx context.Context)
	Cart() ([]model.CartLine, decimal.Decimal, model.Customer)
	SetCustomer(name, phone string)
	CompleteOrder(ctx context.Context) (model.Order, error)
	CreateDebt(ctx context.Context, form service.DebtForm) (model.Debt, model.Order, error)
	MarkDebtPaid(ctx context.Context, debtID int64) bool
	Orders() []model.Order
	Debts() []model.Debt
	DeleteOrder(ctx context.Context, id int64) bool
	RemoveDebt(ctx context.Context, id int64) bool
	Analytics(from, to *time.Time) analytics.Report
	Rate() decimal.Decimal
	Backup() model.Backup
	Restore(ctx context.Context, data []byte) error
}

// Handler реализует HTTP-обработчики API кассы.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type productMatchResponse struct {
	model.Product
	Score      float64                  `json:"score"`
	Highlights map[string][]search.Span `json:"highlights"`
}

// GetProducts возвращает каталог, ранжированный по запросу q.
// Пустой запрос возвращает весь каталог.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	matches := h.service.SearchProducts(r.URL.Query().Get("q"))

	resp := make([]productMatchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, productMatchResponse{
			Product:    m.Product,
			Score:      m.Score,
			Highlights: m.Highlights,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type editProductRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
}

// EditProduct переписывает название и цену товара.
func (h *Handler) EditProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req editProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil || req.Price.IsNegative() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.EditProduct(r.Context(), id, req.Name, req.Price); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("edit product error", zap.Error(err), zap.Int64("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type cartResponse struct {
	Items    []model.CartLine `json:"items"`
	Total    decimal.Decimal  `json:"total"`
	Customer model.Customer   `json:"customer"`
}

// GetCart возвращает корзину, её сумму и покупателя текущего заказа.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	items, total, customer := h.service.Cart()
	h.writeJSON(w, http.StatusOK, cartResponse{Items: items, Total: total, Customer: customer})
}

type addCartItemRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
}

// AddCartItem добавляет товар каталога в корзину.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AddToCart(r.Context(), req.ProductID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add to cart error", zap.Error(err), zap.Int64("productID", req.ProductID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateCartItem устанавливает количество позиции корзины.
// Количество ноль и меньше удаляет позицию.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.service.UpdateQuantity(r.Context(), id, req.Quantity)
	w.WriteHeader(http.StatusOK)
}

// RemoveCartItem удаляет позицию корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.service.RemoveFromCart(r.Context(), id)
	w.WriteHeader(http.StatusOK)
}

// ResetCart начинает новый заказ: очищает корзину и покупателя.
func (h *Handler) ResetCart(w http.ResponseWriter, r *http.Request) {
	h.service.ResetCart(r.Context())
	w.WriteHeader(http.StatusOK)
}

type customerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SetCustomer запоминает покупателя текущего заказа.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.service.SetCustomer(req.Name, req.Phone)
	w.WriteHeader(http.StatusOK)
}

// GetOrders возвращает список заказов, новые первыми.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Orders())
}

// CompleteOrder оформляет корзину заказом с немедленной оплатой.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CompleteOrder(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrCartEmpty) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("complete order error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

// DeleteOrder удаляет заказ. Связанный долг остаётся.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.service.DeleteOrder(r.Context(), id) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetDebts возвращает список долгов, новые первыми.
func (h *Handler) GetDebts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Debts())
}

type debtRequest struct {
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerPhone string `json:"customerPhone"`
	Amount        string `json:"amount" validate:"required"`
	DueDate       string `json:"dueDate"`
	Note          string `json:"note"`
}

type debtResponse struct {
	Debt  model.Debt  `json:"debt"`
	Order model.Order `json:"order"`
}

// CreateDebt создаёт долг и оформляет корзину заказом с отложенной оплатой.
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	debt, order, err := h.service.CreateDebt(r.Context(), service.DebtForm{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		Note:          req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCartEmpty):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, store.ErrCustomerNameRequired),
			errors.Is(err, store.ErrDebtAmountNotPositive),
			errors.Is(err, service.ErrInvalidDueDate):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("create debt error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, debtResponse{Debt: debt, Order: order})
}

// MarkDebtPaid отмечает долг оплаченным с каскадом на заказы.
func (h *Handler) MarkDebtPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.service.MarkDebtPaid(r.Context(), id) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveDebt удаляет долг. Связанные заказы остаются.
func (h *Handler) RemoveDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.service.RemoveDebt(r.Context(), id) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetAnalytics строит отчёт по заказам. Границы окна передаются
// параметрами from и to в формате RFC3339, обе необязательны.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		to = &t
	}

	h.writeJSON(w, http.StatusOK, h.service.Analytics(from, to))
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// GetRate возвращает текущий обменный курс.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, rateResponse{Rate: h.service.Rate()})
}

// GetBackup отдаёт полную резервную копию состояния кассы файлом.
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	backup := h.service.Backup()

	filename := "electromax-backup-" + backup.Meta.Timestamp.Format("2006-01-02") + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	h.writeJSON(w, http.StatusOK, backup)
}

// RestoreBackup восстанавливает состояние из файла резервной копии.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.Restore(r.Context(), data); err != nil {
		if errors.Is(err, service.ErrBackupFormat) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("restore backup error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Export отдаёт отдельный раздел состояния файлом: products, orders или debts.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var payload any
	switch kind {
	case "products":
		payload = h.service.Products()
	case "orders":
		payload = h.service.Orders()
	case "debts":
		payload = h.service.Debts()
	default:
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	filename := kind + "-" + time.Now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	h.writeJSON(w, http.StatusOK, payload)
}
