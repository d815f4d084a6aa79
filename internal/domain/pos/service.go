package pos

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/softguidetech/karage/internal/domain/tax"
)

var hundred = decimal.NewFromInt(100)

// Receipt is the caller-visible summary of a committed order.
type Receipt struct {
	ID           int64
	Name         string
	PosReference string
	AmountTotal  decimal.Decimal
	AmountPaid   decimal.Decimal
	State        string
	DateOrder    time.Time
}

// Service assembles and commits orders. It owns no state of its own; every
// referenced entity is resolved through the injected collaborators, and tax
// math (including rounding) is delegated entirely to the tax engine.
type Service struct {
	sessions SessionRepository
	products ProductLookup
	methods  PaymentMethodRepository
	fiscal   FiscalPositionRepository
	engine   tax.Engine
	orders   OrderRepository
}

// NewService creates an order Service with the required collaborators.
func NewService(
	sessions SessionRepository,
	products ProductLookup,
	methods PaymentMethodRepository,
	fiscal FiscalPositionRepository,
	engine tax.Engine,
	orders OrderRepository,
) *Service {
	return &Service{
		sessions: sessions,
		products: products,
		methods:  methods,
		fiscal:   fiscal,
		engine:   engine,
		orders:   orders,
	}
}

// Submit resolves every entity the request references, computes per-line
// taxes, reconciles totals, persists the order, and transitions it to paid
// when the payments cover the total (unless the caller asked for a draft).
//
// Lines and payments are processed sequentially in input order; entries
// without a product or payment method id are silently dropped. The first
// failing check wins and nothing is persisted before the final commit.
func (s *Service) Submit(ctx context.Context, req OrderRequest) (*Receipt, error) {
	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &SessionNotFoundError{SessionID: req.SessionID}
		}
		return nil, errors.Wrapf(err, "get session %d", req.SessionID)
	}
	if !session.AcceptsOrders() {
		return nil, &SessionNotOpenError{Name: session.Name, State: session.State}
	}

	var fp *tax.FiscalPosition
	if session.FiscalPositionID != nil {
		fp, err = s.fiscal.GetByID(ctx, *session.FiscalPositionID)
		if err != nil {
			return nil, errors.Wrapf(err, "get fiscal position %d", *session.FiscalPositionID)
		}
	}

	lines, err := s.resolveLines(ctx, req.Lines, session, fp)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoOrderLines
	}

	payments, amountPaid, err := s.resolvePayments(ctx, req.Payments)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ErrNoPaymentLines
	}

	amountTotal := decimal.Zero
	amountTax := decimal.Zero
	for _, l := range lines {
		amountTotal = amountTotal.Add(l.PriceSubtotalIncl)
		amountTax = amountTax.Add(l.TaxAmount())
	}

	amountReturn := amountPaid.Sub(amountTotal)
	if amountReturn.IsNegative() {
		amountReturn = decimal.Zero
	}

	o := &Order{
		SessionID:        session.ID,
		ConfigID:         session.ConfigID,
		CompanyID:        session.CompanyID,
		PricelistID:      session.PricelistID,
		FiscalPositionID: session.FiscalPositionID,
		UserID:           session.UserID,
		PartnerID:        req.PartnerID,
		DateOrder:        req.DateOrder,
		Note:             req.Note,
		ToInvoice:        req.ToInvoice,
		Lines:            lines,
		Payments:         payments,
		AmountTotal:      amountTotal,
		AmountTax:        amountTax,
		AmountPaid:       amountPaid,
		AmountReturn:     amountReturn,
		State:            StateDraft,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if amountPaid.GreaterThanOrEqual(amountTotal) && !req.Draft {
		if err := s.orders.MarkPaid(ctx, o.ID); err != nil {
			// The order stays created; it is returned as a draft and the
			// failed transition is logged for reconciliation.
			zctx.From(ctx).Error("mark order paid",
				zap.Int64("order_id", o.ID),
				zap.Error(err),
			)
		} else {
			o.State = StatePaid
		}
	}

	return &Receipt{
		ID:           o.ID,
		Name:         o.Name,
		PosReference: o.PosReference,
		AmountTotal:  o.AmountTotal,
		AmountPaid:   o.AmountPaid,
		State:        o.State,
		DateOrder:    o.DateOrder,
	}, nil
}

// resolveLines turns line requests into tax-computed order lines, preserving
// input order. Entries without a product id are dropped.
func (s *Service) resolveLines(ctx context.Context, reqs []LineRequest, session *Session, fp *tax.FiscalPosition) ([]OrderLine, error) {
	lines := make([]OrderLine, 0, len(reqs))
	for _, lr := range reqs {
		if lr.ProductID == 0 {
			continue
		}

		p, err := s.products.GetByID(ctx, lr.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: lr.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %d", lr.ProductID)
		}

		priceUnit := p.ListPrice
		if lr.PriceUnit != nil {
			priceUnit = *lr.PriceUnit
		}

		taxes := tax.FilterByCompany(p.Taxes, session.CompanyID)
		taxes = fp.MapTaxes(taxes)

		discounted := priceUnit.Mul(decimal.NewFromInt(1).Sub(lr.Discount.Div(hundred)))
		res, err := s.engine.ComputeAll(discounted, decimal.NewFromFloat(lr.Qty), taxes)
		if err != nil {
			return nil, errors.Wrapf(err, "compute taxes for product %d", lr.ProductID)
		}

		lines = append(lines, OrderLine{
			ProductID:         p.ID,
			Qty:               lr.Qty,
			PriceUnit:         priceUnit,
			Discount:          lr.Discount,
			Taxes:             taxes,
			PriceSubtotal:     res.TotalExcluded,
			PriceSubtotalIncl: res.TotalIncluded,
		})
	}
	return lines, nil
}

// resolvePayments turns payment requests into payment lines and accumulates
// the paid amount. Entries without a payment method id are dropped.
func (s *Service) resolvePayments(ctx context.Context, reqs []PaymentRequest) ([]Payment, decimal.Decimal, error) {
	payments := make([]Payment, 0, len(reqs))
	amountPaid := decimal.Zero
	for _, pr := range reqs {
		if pr.PaymentMethodID == 0 {
			continue
		}

		m, err := s.methods.GetByID(ctx, pr.PaymentMethodID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, decimal.Zero, &PaymentMethodNotFoundError{PaymentMethodID: pr.PaymentMethodID}
			}
			return nil, decimal.Zero, errors.Wrapf(err, "get payment method %d", pr.PaymentMethodID)
		}

		amountPaid = amountPaid.Add(pr.Amount)
		payments = append(payments, Payment{
			PaymentMethodID: m.ID,
			Amount:          pr.Amount,
		})
	}
	return payments, amountPaid, nil
}
