package pos

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softguidetech/karage/internal/domain/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeSessions map[int64]*Session

func (f fakeSessions) GetByID(_ context.Context, id int64) (*Session, error) {
	s, ok := f[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeProducts map[int64]*Product

func (f fakeProducts) GetByID(_ context.Context, id int64) (*Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeMethods map[int64]*PaymentMethod

func (f fakeMethods) GetByID(_ context.Context, id int64) (*PaymentMethod, error) {
	m, ok := f[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

type fakeFiscal map[int64]*tax.FiscalPosition

func (f fakeFiscal) GetByID(_ context.Context, id int64) (*tax.FiscalPosition, error) {
	fp, ok := f[id]
	if !ok {
		return nil, ErrNotFound
	}
	return fp, nil
}

// fakeOrders assigns identity on Create and records MarkPaid calls.
type fakeOrders struct {
	created     *Order
	markPaidIDs []int64
	markPaidErr error
}

func (f *fakeOrders) Create(_ context.Context, o *Order) error {
	o.ID = 42
	o.Name = "POS/00042"
	o.PosReference = "Order 00001-0042"
	f.created = o
	return nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id int64) error {
	if f.markPaidErr != nil {
		return f.markPaidErr
	}
	f.markPaidIDs = append(f.markPaidIDs, id)
	return nil
}

func vat10() tax.Tax {
	return tax.Tax{
		ID: 1, Name: "VAT 10%", Amount: dec("10"),
		AmountType: tax.AmountPercent, CompanyID: 1, Active: true,
	}
}

func openSession() *Session {
	return &Session{
		ID: 1, Name: "POS/00001", State: SessionOpened,
		ConfigID: 1, CompanyID: 1, PricelistID: 1, CurrencyID: 1, UserID: 7,
	}
}

func newTestService(orders *fakeOrders, opts ...func(*Session)) *Service {
	session := openSession()
	for _, opt := range opts {
		opt(session)
	}
	return NewService(
		fakeSessions{1: session},
		fakeProducts{10: {ID: 10, Name: "Espresso", ListPrice: dec("100"), Taxes: []tax.Tax{vat10()}}},
		fakeMethods{1: {ID: 1, Name: "Cash", Active: true}},
		fakeFiscal{},
		tax.NewCalculator(),
		orders,
	)
}

func orderRequest(amountPaid string) OrderRequest {
	return OrderRequest{
		SessionID: 1,
		DateOrder: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lines:     []LineRequest{{ProductID: 10, Qty: 2}},
		Payments:  []PaymentRequest{{PaymentMethodID: 1, Amount: dec(amountPaid)}},
	}
}

func TestSubmit_PaidInFull(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	// 2 x 100 + 10% VAT = 220 total; 300 paid leaves 80 change.
	receipt, err := svc.Submit(context.Background(), orderRequest("300"))
	require.NoError(t, err)

	assert.Equal(t, int64(42), receipt.ID)
	assert.Equal(t, "POS/00042", receipt.Name)
	assert.Equal(t, StatePaid, receipt.State)
	assert.True(t, receipt.AmountTotal.Equal(dec("220")), "total: %s", receipt.AmountTotal)
	assert.True(t, receipt.AmountPaid.Equal(dec("300")))

	require.NotNil(t, orders.created)
	assert.True(t, orders.created.AmountTax.Equal(dec("20")))
	assert.True(t, orders.created.AmountReturn.Equal(dec("80")))
	assert.Equal(t, []int64{42}, orders.markPaidIDs)
}

func TestSubmit_Underpaid_StaysDraft(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	receipt, err := svc.Submit(context.Background(), orderRequest("150"))
	require.NoError(t, err)

	assert.Equal(t, StateDraft, receipt.State)
	assert.True(t, orders.created.AmountReturn.IsZero(), "no change on underpayment")
	assert.Empty(t, orders.markPaidIDs)
}

func TestSubmit_DraftSuppressesPaidTransition(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	req := orderRequest("300")
	req.Draft = true

	receipt, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StateDraft, receipt.State)
	assert.Empty(t, orders.markPaidIDs)
}

func TestSubmit_MarkPaidFailureKeepsDraft(t *testing.T) {
	orders := &fakeOrders{markPaidErr: errors.New("deadlock")}
	svc := newTestService(orders)

	receipt, err := svc.Submit(context.Background(), orderRequest("300"))
	require.NoError(t, err)

	// The order is committed; only the transition failed.
	assert.Equal(t, StateDraft, receipt.State)
	assert.Equal(t, int64(42), receipt.ID)
}

func TestSubmit_SessionNotFound(t *testing.T) {
	svc := newTestService(&fakeOrders{})

	req := orderRequest("300")
	req.SessionID = 99

	_, err := svc.Submit(context.Background(), req)
	var notFound *SessionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualError(t, err, "POS session 99 not found")
}

func TestSubmit_SessionNotOpen(t *testing.T) {
	svc := newTestService(&fakeOrders{}, func(s *Session) {
		s.State = "closing_control"
	})

	_, err := svc.Submit(context.Background(), orderRequest("300"))
	var notOpen *SessionNotOpenError
	require.ErrorAs(t, err, &notOpen)
	assert.EqualError(t, err, "POS session POS/00001 is not open (state: closing_control)")
}

func TestSubmit_OpeningControlAcceptsOrders(t *testing.T) {
	svc := newTestService(&fakeOrders{}, func(s *Session) {
		s.State = SessionOpeningControl
	})

	_, err := svc.Submit(context.Background(), orderRequest("300"))
	require.NoError(t, err)
}

func TestSubmit_ProductNotFound(t *testing.T) {
	svc := newTestService(&fakeOrders{})

	req := orderRequest("300")
	req.Lines = []LineRequest{{ProductID: 999, Qty: 1}}

	_, err := svc.Submit(context.Background(), req)
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualError(t, err, "Product 999 not found")
}

func TestSubmit_PaymentMethodNotFound(t *testing.T) {
	svc := newTestService(&fakeOrders{})

	req := orderRequest("300")
	req.Payments = []PaymentRequest{{PaymentMethodID: 5, Amount: dec("300")}}

	_, err := svc.Submit(context.Background(), req)
	var notFound *PaymentMethodNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualError(t, err, "Payment method 5 not found")
}

func TestSubmit_AllLinesSkipped(t *testing.T) {
	svc := newTestService(&fakeOrders{})

	req := orderRequest("300")
	req.Lines = []LineRequest{{}, {}}

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrNoOrderLines)
	assert.EqualError(t, err, "No valid order lines created")
}

func TestSubmit_AllPaymentsSkipped(t *testing.T) {
	svc := newTestService(&fakeOrders{})

	req := orderRequest("300")
	req.Payments = []PaymentRequest{{Amount: dec("300")}}

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrNoPaymentLines)
	assert.EqualError(t, err, "No valid payment lines created")
}

func TestSubmit_SkippedEntriesDoNotCount(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	req := orderRequest("300")
	req.Lines = []LineRequest{{}, {ProductID: 10, Qty: 2}}
	req.Payments = []PaymentRequest{{}, {PaymentMethodID: 1, Amount: dec("300")}}

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, orders.created.Lines, 1)
	assert.Len(t, orders.created.Payments, 1)
}

func TestSubmit_DiscountAppliesToTaxBase(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	// 100 with 10% discount -> 90 base, 9 VAT, 99 total.
	req := orderRequest("99")
	req.Lines = []LineRequest{{ProductID: 10, Qty: 1, Discount: dec("10")}}

	receipt, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, receipt.AmountTotal.Equal(dec("99")), "total: %s", receipt.AmountTotal)
	require.Len(t, orders.created.Lines, 1)
	line := orders.created.Lines[0]
	// The stored unit price is pre-discount.
	assert.True(t, line.PriceUnit.Equal(dec("100")))
	assert.True(t, line.PriceSubtotal.Equal(dec("90")))
	assert.True(t, line.PriceSubtotalIncl.Equal(dec("99")))
}

func TestSubmit_PriceUnitOverride(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders)

	override := dec("50")
	req := orderRequest("55")
	req.Lines = []LineRequest{{ProductID: 10, Qty: 1, PriceUnit: &override}}

	receipt, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, receipt.AmountTotal.Equal(dec("55")), "total: %s", receipt.AmountTotal)
}

func TestSubmit_FiscalPositionRemapsTaxes(t *testing.T) {
	fpID := int64(3)
	orders := &fakeOrders{}
	session := openSession()
	session.FiscalPositionID = &fpID

	reduced := tax.Tax{
		ID: 2, Name: "VAT 5%", Amount: dec("5"),
		AmountType: tax.AmountPercent, CompanyID: 1, Active: true,
	}
	svc := NewService(
		fakeSessions{1: session},
		fakeProducts{10: {ID: 10, ListPrice: dec("100"), Taxes: []tax.Tax{vat10()}}},
		fakeMethods{1: {ID: 1, Name: "Cash", Active: true}},
		fakeFiscal{fpID: {
			ID: fpID, Name: "Reduced", Active: true,
			Mappings: []tax.Mapping{{SrcTaxID: 1, Dest: &reduced}},
		}},
		tax.NewCalculator(),
		orders,
	)

	receipt, err := svc.Submit(context.Background(), orderRequest("210"))
	require.NoError(t, err)

	// 2 x 100 at the remapped 5% rate.
	assert.True(t, receipt.AmountTotal.Equal(dec("210")), "total: %s", receipt.AmountTotal)
	assert.True(t, orders.created.AmountTax.Equal(dec("10")))
}

func TestSubmit_OtherCompanyTaxesIgnored(t *testing.T) {
	orders := &fakeOrders{}
	foreign := vat10()
	foreign.CompanyID = 2

	svc := NewService(
		fakeSessions{1: openSession()},
		fakeProducts{10: {ID: 10, ListPrice: dec("100"), Taxes: []tax.Tax{foreign}}},
		fakeMethods{1: {ID: 1, Name: "Cash", Active: true}},
		fakeFiscal{},
		tax.NewCalculator(),
		orders,
	)

	receipt, err := svc.Submit(context.Background(), orderRequest("200"))
	require.NoError(t, err)
	assert.True(t, receipt.AmountTotal.Equal(dec("200")), "total: %s", receipt.AmountTotal)
	assert.True(t, orders.created.AmountTax.IsZero())
}
