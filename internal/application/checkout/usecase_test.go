package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
	domain "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
	dompayment "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/payment"
	dompromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/memory"
)

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("order-%d", g.n)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) byName(name string) []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domoutbox.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	lastReceipt string
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency, receiptRef string) (*dompayment.Intent, error) {
	g.lastReceipt = receiptRef
	return &dompayment.Intent{GatewayOrderID: "gw_" + receiptRef, Amount: amount, Currency: currency}, nil
}

type fixture struct {
	uc       *UseCase
	orders   *memory.OrderRepository
	ledger   *memory.InventoryRepository
	promos   *memory.PromoRepository
	pub      *capturingPublisher
	verifier *dompayment.SignatureVerifier
	gateway  *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   memory.NewOrderRepository(),
		ledger:   memory.NewInventoryRepository(),
		promos:   memory.NewPromoRepository(),
		pub:      &capturingPublisher{},
		verifier: dompayment.NewSignatureVerifier("test-secret"),
		gateway:  &fakeGateway{},
	}
	f.uc = NewUseCase(f.orders, f.ledger, f.promos, f.gateway, f.verifier, f.pub, &seqIDGen{}, nil)

	p, err := dominv.NewProduct("p-1", 0, []dominv.Variant{{Size: "M", Color: "black", Stock: 10}})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Save(context.Background(), p))

	require.NoError(t, f.promos.Save(context.Background(), &dompromo.Promo{
		Code:           "SUMMER10",
		Type:           dompromo.TypePercentage,
		Value:          10,
		MinOrderAmount: 100,
		MaxDiscount:    50,
		UsageLimit:     5,
		ExpiresAt:      time.Now().Add(time.Hour),
	}))
	return f
}

func (f *fixture) draft(promoCode string) Draft {
	return Draft{
		UserID: "u-1",
		Items: []domain.Item{
			{ProductID: "p-1", Name: "wool coat", Quantity: 2, UnitPrice: 500, Size: "M", Color: "black"},
		},
		Address:   domain.Address{City: "Dubai", Country: "AE"},
		PromoCode: promoCode,
		Method:    domain.MethodCard,
	}
}

func (f *fixture) verifyInput(promoCode string) VerifyInput {
	return VerifyInput{
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "gw_pay_1",
		Signature:        f.verifier.Sign("gw_order_1", "gw_pay_1"),
		Draft:            f.draft(promoCode),
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.ledger.Get(context.Background(), "p-1")
	require.NoError(t, err)
	return p.Stock
}

func TestVerifyAndCreateHappyPath(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.VerifyAndCreate(context.Background(), f.verifyInput("SUMMER10"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, res.Outcome)
	o := res.Order
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)
	assert.True(t, o.PaymentVerified)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "gw_order_1", o.GatewayOrderID)
	assert.Equal(t, int64(1000), o.Subtotal)
	assert.Equal(t, int64(50), o.Discount, "10% of 1000 capped at 50")
	assert.Equal(t, int64(950), o.Total)
	assert.Equal(t, "SUMMER10", o.PromoCode)
	require.Len(t, o.History, 1)

	assert.Equal(t, 8, f.stock(t))
	assert.Len(t, f.pub.byName("order.created"), 1)
}

func TestVerifyAndCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	in := f.verifyInput("")

	first, err := f.uc.VerifyAndCreate(context.Background(), in)
	require.NoError(t, err)

	second, err := f.uc.VerifyAndCreate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 8, f.stock(t), "stock decremented exactly once")
	assert.Len(t, f.pub.byName("order.created"), 1, "event emitted exactly once")
}

func TestVerifyAndCreateRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t)
	in := f.verifyInput("SUMMER10")

	sig := []byte(in.Signature)
	if sig[0] == '0' {
		sig[0] = '1'
	} else {
		sig[0] = '0'
	}
	in.Signature = string(sig)

	_, err := f.uc.VerifyAndCreate(context.Background(), in)
	assert.ErrorIs(t, err, dompayment.ErrSignatureMismatch)

	// No side effects of any kind.
	assert.Equal(t, 10, f.stock(t))
	assert.Empty(t, f.pub.events)
	_, err = f.orders.FindByGatewayOrderID(context.Background(), "gw_order_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, _ := f.promos.Find(context.Background(), "SUMMER10")
	assert.Zero(t, p.UsedCount)
}

func TestVerifyAndCreateDegradesWhenPromoExhausted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.promos.Save(context.Background(), &dompromo.Promo{
		Code:       "GONE",
		Type:       dompromo.TypeFixed,
		Value:      100,
		UsageLimit: 1,
		UsedCount:  1,
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	res, err := f.uc.VerifyAndCreate(context.Background(), f.verifyInput("GONE"))
	require.NoError(t, err, "a paid callback still creates the order")

	assert.Equal(t, OutcomeCreatedWithoutDiscount, res.Outcome)
	assert.ErrorIs(t, res.PromoErr, dompromo.ErrUsageLimitReached)
	assert.Zero(t, res.Order.Discount)
	assert.Equal(t, int64(1000), res.Order.Total)
	assert.Empty(t, res.Order.PromoCode)
}

func TestVerifyAndCreateStockShortfallIsHardFailure(t *testing.T) {
	f := newFixture(t)
	in := f.verifyInput("SUMMER10")
	in.Draft.Items[0].Quantity = 11 // more than the 10 in stock

	_, err := f.uc.VerifyAndCreate(context.Background(), in)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)

	// The order exists only as a cancelled terminal marker.
	o, ferr := f.orders.FindByGatewayOrderID(context.Background(), "gw_order_1")
	require.NoError(t, ferr)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, domain.PaymentRefunded, o.PaymentStatus)

	// Compensations ran: stock untouched, promo slot released.
	assert.Equal(t, 10, f.stock(t))
	p, _ := f.promos.Find(context.Background(), "SUMMER10")
	assert.Zero(t, p.UsedCount)

	assert.Empty(t, f.pub.byName("order.created"))
}

func TestVerifyAndCreateMultiItemShortfallRestoresEarlierLines(t *testing.T) {
	f := newFixture(t)
	p2, err := dominv.NewProduct("p-2", 1, nil)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Save(context.Background(), p2))

	in := f.verifyInput("")
	in.Draft.Items = []domain.Item{
		{ProductID: "p-1", Quantity: 2, UnitPrice: 500, Size: "M", Color: "black"},
		{ProductID: "p-2", Quantity: 5, UnitPrice: 100},
	}

	_, err = f.uc.VerifyAndCreate(context.Background(), in)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)

	assert.Equal(t, 10, f.stock(t), "first line's decrement must be compensated")
}

func TestCreateCODOrderStartsUnpaid(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CreateCODOrder(context.Background(), f.draft(""))
	require.NoError(t, err)

	o := res.Order
	assert.Equal(t, domain.MethodCOD, o.PaymentMethod)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.False(t, o.PaymentVerified)
	assert.Equal(t, 8, f.stock(t))
	assert.Len(t, f.pub.byName("order.created"), 1)
}

func TestCreateIntentValidatesReceipt(t *testing.T) {
	f := newFixture(t)

	long := make([]byte, dompayment.MaxReceiptLen+1)
	for i := range long {
		long[i] = 'r'
	}
	_, err := f.uc.CreateIntent(context.Background(), 1000, "AED", string(long))
	assert.ErrorIs(t, err, dompayment.ErrReceiptTooLong)

	_, err = f.uc.CreateIntent(context.Background(), 0, "AED", "rcpt-1")
	assert.ErrorIs(t, err, dompayment.ErrInvalidAmount)

	intent, err := f.uc.CreateIntent(context.Background(), 1000, "AED", "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, "gw_rcpt-1", intent.GatewayOrderID)
	assert.Equal(t, int64(1000), intent.Amount)
}

func TestVerifyAndMarkPaidIsIdempotent(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CreateCODOrder(context.Background(), f.draft(""))
	require.NoError(t, err)
	orderID := res.Order.ID

	sig := f.verifier.Sign("gw_o2", "gw_p2")
	paid, err := f.uc.VerifyAndMarkPaid(context.Background(), orderID, "gw_o2", "gw_p2", sig)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
	assert.True(t, paid.PaymentVerified)

	again, err := f.uc.VerifyAndMarkPaid(context.Background(), orderID, "gw_o2", "gw_p2", sig)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, again.PaymentStatus)

	_, err = f.uc.VerifyAndMarkPaid(context.Background(), orderID, "gw_o2", "gw_p2", "bad-signature")
	assert.ErrorIs(t, err, dompayment.ErrSignatureMismatch)
}

func TestVerifyAndCreateConcurrentCallbacksCreateOneOrder(t *testing.T) {
	f := newFixture(t)
	in := f.verifyInput("")

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.uc.VerifyAndCreate(context.Background(), in)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Outcome != OutcomeAlreadyProcessed {
			created++
		}
	}
	assert.Equal(t, 1, created, "exactly one callback wins the insert")
	assert.Equal(t, 8, f.stock(t), "stock decremented once despite racing callbacks")
}
