package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	dominv "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
	dompayment "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/payment"
	dompromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/logging"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/metrics"
)

var (
	ErrMissingCallbackFields = errors.New("checkout: gateway order id, payment id and signature are required")
	ErrEmptyUser             = errors.New("checkout: user id is required")
)

// Outcome distinguishes the ways a verified callback can resolve. A failed
// promo commit degrades to an order without the discount instead of failing
// the payment, and the caller is told explicitly.
type Outcome string

const (
	OutcomeCreated                Outcome = "created"
	OutcomeCreatedWithoutDiscount Outcome = "created_without_discount"
	OutcomeAlreadyProcessed       Outcome = "already_processed"
)

// Draft is the cart collaborator's finalized checkout payload. Item prices
// are snapshots; the use case never re-reads the catalog for pricing.
type Draft struct {
	UserID    string
	Items     []domain.Item
	Address   domain.Address
	PromoCode string
	Method    domain.PaymentMethod
}

func (d Draft) Subtotal() int64 {
	var sum int64
	for _, it := range d.Items {
		sum += int64(it.Quantity) * it.UnitPrice
	}
	return sum
}

type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Draft            Draft
}

type Result struct {
	Order   *domain.Order
	Outcome Outcome
	// PromoErr is set when the outcome is OutcomeCreatedWithoutDiscount and
	// names why the code was not honoured.
	PromoErr error
}

// UseCase owns the cart-to-paid-order transition: callback verification,
// idempotent order creation, inventory decrement and promo commitment, with
// compensating actions when a later step fails.
type UseCase struct {
	orders   domain.Repository
	ledger   dominv.Ledger
	promos   dompromo.Repository
	gateway  dompayment.Gateway
	verifier SignatureVerifier
	pub      domoutbox.Publisher
	idGen    IDGenerator
	met      *metrics.Metrics
}

func NewUseCase(
	orders domain.Repository,
	ledger dominv.Ledger,
	promos dompromo.Repository,
	gateway dompayment.Gateway,
	verifier SignatureVerifier,
	pub domoutbox.Publisher,
	idGen IDGenerator,
	met *metrics.Metrics,
) *UseCase {
	if met == nil {
		met = metrics.NewNop()
	}
	return &UseCase{
		orders:   orders,
		ledger:   ledger,
		promos:   promos,
		gateway:  gateway,
		verifier: verifier,
		pub:      pub,
		idGen:    idGen,
		met:      met,
	}
}

// CreateIntent delegates intent creation to the gateway. Pure pass-through,
// no local state changes.
func (uc *UseCase) CreateIntent(ctx context.Context, amount int64, currency, receiptRef string) (*dompayment.Intent, error) {
	if amount <= 0 {
		return nil, dompayment.ErrInvalidAmount
	}
	if len(receiptRef) > dompayment.MaxReceiptLen {
		return nil, dompayment.ErrReceiptTooLong
	}
	return uc.gateway.CreateIntent(ctx, amount, currency, receiptRef)
}

// VerifyAndCreate handles the gateway payment callback. Signature mismatch
// rejects with no side effects. A replayed callback for an already processed
// gateway order returns the existing order untouched: stock is never
// decremented twice and no duplicate events are emitted.
func (uc *UseCase) VerifyAndCreate(ctx context.Context, in VerifyInput) (*Result, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.VerifyAndCreate")
	defer span.End()
	span.SetAttributes(attribute.String("gateway.order_id", in.GatewayOrderID))

	log := logging.FromContext(ctx).With(
		zap.String("gateway_order_id", in.GatewayOrderID),
		zap.String("user_id", in.Draft.UserID),
	)

	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		return nil, ErrMissingCallbackFields
	}

	if err := uc.verifier.Verify(in.GatewayOrderID, in.GatewayPaymentID, in.Signature); err != nil {
		span.SetStatus(codes.Error, "signature mismatch")
		log.Warn("payment_signature_rejected")
		return nil, err
	}

	existing, err := uc.orders.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	switch {
	case err == nil:
		span.AddEvent("callback_replayed")
		log.Info("payment_callback_replayed", zap.String("order_id", existing.ID))
		return &Result{Order: existing, Outcome: OutcomeAlreadyProcessed}, nil
	case errors.Is(err, domain.ErrNotFound):
		// first delivery of this callback
	default:
		return nil, fmt.Errorf("checkout: idempotency lookup: %w", err)
	}

	res, err := uc.createOrder(ctx, in.Draft, &in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	uc.met.OrdersCreated.WithLabelValues(string(in.Draft.Method), string(res.Outcome)).Inc()
	log.Info("order_created_from_callback",
		zap.String("order_id", res.Order.ID),
		zap.String("outcome", string(res.Outcome)),
	)
	return res, nil
}

// CreateCODOrder places a cash-on-delivery order: the same saga without a
// gateway callback, starting unpaid and unverified.
func (uc *UseCase) CreateCODOrder(ctx context.Context, draft Draft) (*Result, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.CreateCODOrder")
	defer span.End()

	draft.Method = domain.MethodCOD
	res, err := uc.createOrder(ctx, draft, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	uc.met.OrdersCreated.WithLabelValues(string(domain.MethodCOD), string(res.Outcome)).Inc()
	return res, nil
}

// VerifyAndMarkPaid confirms payment for an order that already exists (a
// retried card payment on a pending order). Idempotent when already paid.
func (uc *UseCase) VerifyAndMarkPaid(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID, signature string) (*domain.Order, error) {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return nil, ErrMissingCallbackFields
	}
	if err := uc.verifier.Verify(gatewayOrderID, gatewayPaymentID, signature); err != nil {
		return nil, err
	}

	o, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == domain.PaymentPaid {
		return o, nil
	}

	o.MarkPaid(gatewayOrderID, gatewayPaymentID)
	if err := uc.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("checkout: mark paid: %w", err)
	}
	uc.publish(ctx, domain.NewOrderStatusUpdatedEvent(o, "payment confirmed"))
	return o, nil
}

// createOrder runs the creation saga: promo commit, order insert, inventory
// decrement, event publish. Each step is individually atomic; later-step
// failure triggers compensating actions for the earlier ones.
func (uc *UseCase) createOrder(ctx context.Context, draft Draft, callback *VerifyInput) (*Result, error) {
	log := logging.FromContext(ctx)

	if draft.UserID == "" {
		return nil, ErrEmptyUser
	}
	subtotal := draft.Subtotal()

	var (
		discount  int64
		promoCode string
		outcome   = OutcomeCreated
		promoErr  error
	)
	if draft.PromoCode != "" {
		discount, promoErr = uc.applyPromo(ctx, draft.PromoCode, draft.UserID, subtotal)
		if promoErr != nil {
			// Deliberate degradation: the payment already happened, so the
			// order is created without the discount and the caller is told.
			outcome = OutcomeCreatedWithoutDiscount
			discount = 0
			uc.met.PromoApplies.WithLabelValues("rejected").Inc()
			log.Warn("promo_commit_degraded",
				zap.String("promo_code", draft.PromoCode),
				zap.Error(promoErr),
			)
		} else {
			promoCode = draft.PromoCode
			uc.met.PromoApplies.WithLabelValues("applied").Inc()
		}
	}

	o, err := domain.New(uc.idGen.NewID(), draft.UserID, draft.Items, draft.Address, draft.Method, promoCode, subtotal, discount)
	if err != nil {
		uc.releasePromo(ctx, promoCode, draft.UserID)
		return nil, err
	}
	if callback != nil {
		o.MarkPaid(callback.GatewayOrderID, callback.GatewayPaymentID)
	}

	if err := uc.orders.Insert(ctx, o); err != nil {
		uc.releasePromo(ctx, promoCode, draft.UserID)
		if callback != nil && errors.Is(err, domain.ErrConflict) {
			// A concurrent delivery of the same callback won the insert.
			if existing, lookupErr := uc.orders.FindByGatewayOrderID(ctx, callback.GatewayOrderID); lookupErr == nil {
				return &Result{Order: existing, Outcome: OutcomeAlreadyProcessed}, nil
			}
		}
		return nil, fmt.Errorf("checkout: insert order: %w", err)
	}

	if err := uc.decrementItems(ctx, o.Items); err != nil {
		// Stock shortfall is a hard rejection: roll the order into its
		// cancelled terminal marker rather than leaving it dangling as paid.
		uc.releasePromo(ctx, promoCode, draft.UserID)
		if terr := o.Transition(domain.StatusCancelled, "stock shortfall during creation"); terr == nil {
			if o.PaymentStatus == domain.PaymentPaid {
				o.MarkRefunded()
			}
			if uerr := uc.orders.Update(ctx, o); uerr != nil {
				log.Error("order_rollback_update_failed", zap.String("order_id", o.ID), zap.Error(uerr))
			}
		}
		uc.met.StockConflicts.Inc()
		return nil, err
	}

	uc.publish(ctx, domain.NewOrderCreatedEvent(o))
	return &Result{Order: o, Outcome: outcome, PromoErr: promoErr}, nil
}

// applyPromo validates and commits the redemption. The repository's Apply
// re-checks the guards atomically, so racing redemptions cannot overshoot
// the usage limit even though Validate ran on a snapshot.
func (uc *UseCase) applyPromo(ctx context.Context, code, userID string, subtotal int64) (int64, error) {
	p, err := uc.promos.Find(ctx, code)
	if err != nil {
		return 0, err
	}
	discount, err := p.Validate(userID, subtotal, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := uc.promos.Apply(ctx, code, userID, subtotal, discount); err != nil {
		return 0, err
	}
	return discount, nil
}

func (uc *UseCase) releasePromo(ctx context.Context, code, userID string) {
	if code == "" {
		return
	}
	if err := uc.promos.Release(ctx, code, userID); err != nil {
		logging.FromContext(ctx).Error("promo_release_failed",
			zap.String("promo_code", code),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// decrementItems walks the order lines, restoring any already-decremented
// lines when one fails so stock is left exactly as found.
func (uc *UseCase) decrementItems(ctx context.Context, items []domain.Item) error {
	for i, it := range items {
		if err := uc.ledger.Decrement(ctx, it.ProductID, it.Quantity, it.Size, it.Color); err != nil {
			for j := i - 1; j >= 0; j-- {
				prev := items[j]
				if rerr := uc.ledger.Restore(ctx, prev.ProductID, prev.Quantity, prev.Size, prev.Color); rerr != nil {
					logging.FromContext(ctx).Error("stock_compensation_failed",
						zap.String("product_id", prev.ProductID),
						zap.Error(rerr),
					)
				}
			}
			return err
		}
	}
	return nil
}

func (uc *UseCase) publish(ctx context.Context, e domoutbox.Event) {
	if uc.pub == nil {
		return
	}
	if err := uc.pub.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}
