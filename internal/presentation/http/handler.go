package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcheckout "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/checkout"
	apporder "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/order"
	apppromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/promo"
	dominv "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
	domorder "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	dompayment "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/payment"
	dompromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/metrics"
)

// Handler is the thin order surface over the checkout core.
type Handler struct {
	checkout *appcheckout.UseCase
	orders   *apporder.Service
	promos   *apppromo.Service
	met      *metrics.Metrics
}

func NewHandler(checkout *appcheckout.UseCase, orders *apporder.Service, promos *apppromo.Service, met *metrics.Metrics) *Handler {
	if met == nil {
		met = metrics.NewNop()
	}
	return &Handler{checkout: checkout, orders: orders, promos: promos, met: met}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(HTTPMetrics(h.met))

	r.Post("/orders", h.handleCreateCOD)
	r.Get("/orders", h.handleListOrders)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Patch("/orders/{id}/status", h.handleUpdateStatus)
	r.Post("/orders/{id}/cancel", h.handleCancel)
	r.Get("/orders/{id}/invoice", h.handleInvoice)

	r.Post("/payments/intent", h.handleCreateIntent)
	r.Post("/payments/verify", h.handleVerify)
	r.Post("/payments/verify-existing", h.handleVerifyExisting)

	r.Post("/promos/validate", h.handleValidatePromo)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type itemPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type addressPayload struct {
	Name     string `json:"name"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
	Phone    string `json:"phone"`
}

type draftPayload struct {
	UserID    string         `json:"user_id"`
	Items     []itemPayload  `json:"items"`
	Address   addressPayload `json:"address"`
	PromoCode string         `json:"promo_code,omitempty"`
}

func (d draftPayload) toDraft(method domorder.PaymentMethod) appcheckout.Draft {
	items := make([]domorder.Item, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domorder.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return appcheckout.Draft{
		UserID: d.UserID,
		Items:  items,
		Address: domorder.Address{
			Name:     d.Address.Name,
			Line1:    d.Address.Line1,
			Line2:    d.Address.Line2,
			City:     d.Address.City,
			Country:  d.Address.Country,
			Postcode: d.Address.Postcode,
			Phone:    d.Address.Phone,
		},
		PromoCode: d.PromoCode,
		Method:    method,
	}
}

type statusChangeView struct {
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

type orderView struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	Items            []itemPayload      `json:"items"`
	Subtotal         int64              `json:"subtotal"`
	Discount         int64              `json:"discount"`
	PromoCode        string             `json:"promo_code,omitempty"`
	Total            int64              `json:"total"`
	Status           string             `json:"status"`
	PaymentStatus    string             `json:"payment_status"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentVerified  bool               `json:"payment_verified"`
	GatewayOrderID   string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string             `json:"gateway_payment_id,omitempty"`
	History          []statusChangeView `json:"history"`
	CreatedAt        time.Time          `json:"created_at"`
}

func toOrderView(o *domorder.Order) orderView {
	items := make([]itemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemPayload{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	history := make([]statusChangeView, 0, len(o.History))
	for _, hc := range o.History {
		history = append(history, statusChangeView{Status: string(hc.Status), Note: hc.Note, At: hc.At})
	}
	return orderView{
		ID:               o.ID,
		UserID:           o.UserID,
		Items:            items,
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		PromoCode:        o.PromoCode,
		Total:            o.Total,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentVerified:  o.PaymentVerified,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		History:          history,
		CreatedAt:        o.CreatedAt,
	}
}

type createOrderResponse struct {
	Order      orderView `json:"order"`
	Outcome    string    `json:"outcome"`
	PromoError string    `json:"promo_error,omitempty"`
}

func (h *Handler) handleCreateCOD(w http.ResponseWriter, r *http.Request) {
	var req draftPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.checkout.CreateCODOrder(r.Context(), req.toDraft(domorder.MethodCOD))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreateResponse(res))
}

type createIntentRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	ReceiptRef string `json:"receipt_ref"`
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	intent, err := h.checkout.CreateIntent(r.Context(), req.Amount, req.Currency, req.ReceiptRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"gateway_order_id": intent.GatewayOrderID,
		"amount":           intent.Amount,
		"currency":         intent.Currency,
	})
}

type verifyRequest struct {
	GatewayOrderID   string       `json:"gateway_order_id"`
	GatewayPaymentID string       `json:"gateway_payment_id"`
	Signature        string       `json:"signature"`
	Draft            draftPayload `json:"draft"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.checkout.VerifyAndCreate(r.Context(), appcheckout.VerifyInput{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		Draft:            req.Draft.toDraft(domorder.MethodCard),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Outcome == appcheckout.OutcomeAlreadyProcessed {
		status = http.StatusOK
	}
	writeJSON(w, status, toCreateResponse(res))
}

type verifyExistingRequest struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

func (h *Handler) handleVerifyExisting(w http.ResponseWriter, r *http.Request) {
	var req verifyExistingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.checkout.VerifyAndMarkPaid(r.Context(), req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	list, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domorder.Status(req.Status), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type cancelRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

// handleInvoice renders a plain-text invoice. Proper PDF rendering lives in
// the back-office service; this endpoint exists so clients have a stable
// download URL.
func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "INVOICE %s\n", o.ID)
	fmt.Fprintf(w, "Date: %s\n\n", o.CreatedAt.Format("2006-01-02"))
	for _, it := range o.Items {
		fmt.Fprintf(w, "%-30s x%d  %d\n", it.Name, it.Quantity, int64(it.Quantity)*it.UnitPrice)
	}
	fmt.Fprintf(w, "\nSubtotal: %d\n", o.Subtotal)
	if o.Discount > 0 {
		fmt.Fprintf(w, "Discount (%s): -%d\n", o.PromoCode, o.Discount)
	}
	fmt.Fprintf(w, "Total: %d\n", o.Total)
}

type validatePromoRequest struct {
	Code        string `json:"code"`
	UserID      string `json:"user_id"`
	OrderAmount int64  `json:"order_amount"`
}

func (h *Handler) handleValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.promos.Validate(r.Context(), req.Code, req.UserID, req.OrderAmount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"discount":     res.Discount,
		"final_amount": res.FinalAmount,
	})
}

func toCreateResponse(res *appcheckout.Result) createOrderResponse {
	out := createOrderResponse{
		Order:   toOrderView(res.Order),
		Outcome: string(res.Outcome),
	}
	if res.PromoErr != nil {
		out.PromoError = res.PromoErr.Error()
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps domain sentinels onto the error taxonomy:
// validation 400, authentication 401, not-found 404, conflict 409,
// transient 503.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dompayment.ErrSignatureMismatch):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domorder.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dompromo.ErrNotFound),
		errors.Is(err, dominv.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dominv.ErrInsufficientStock),
		errors.Is(err, dominv.ErrVariantNotFound),
		errors.Is(err, dompromo.ErrAlreadyUsed),
		errors.Is(err, dompromo.ErrUsageLimitReached),
		errors.Is(err, dompromo.ErrExpired),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrTerminalState),
		errors.Is(err, domorder.ErrNotCancellable),
		errors.Is(err, domorder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, dompayment.ErrGatewayUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
