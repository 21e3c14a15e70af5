// Package ledger owns the per-instrument position and order history: placing and
// filling orders, closing positions and reconciling open limit orders.
package ledger

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

// Ledger applies order flow to instruments. It does not lock; callers serialize
// access to an instrument.
type Ledger struct {
	clock    clock.Clock
	logger   *logger.Logger
	validate *validator.Validate
	newID    func() string
}

// NewLedger creates a ledger stamping orders with clk.
func NewLedger(clk clock.Clock, log *logger.Logger) *Ledger {
	if clk == nil {
		clk = clock.New()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Ledger{
		clock:    clk,
		logger:   log,
		validate: validator.New(),
		newID:    func() string { return uuid.New().String() },
	}
}

func knownPrice(price optional.Option[float64]) (float64, bool) {
	p, err := price.Take()
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}

	return p, true
}

func (l *Ledger) validateRequest(req types.OrderRequest) error {
	if err := l.validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			switch fieldErrors[0].Field() {
			case "Quantity":
				return errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be greater than zero, got %v", req.Quantity)
			case "Kind":
				return errors.Newf(errors.ErrCodeInvalidOrderKind, "unknown order kind %q", req.Kind)
			case "Side":
				return errors.Newf(errors.ErrCodeInvalidSide, "unknown order side %q", req.Side)
			}
		}

		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if math.IsInf(req.Quantity, 0) || math.IsNaN(req.Quantity) {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be finite, got %v", req.Quantity)
	}

	if math.IsInf(req.FeeRate, 0) || math.IsNaN(req.FeeRate) {
		return errors.Newf(errors.ErrCodeInvalidFeeRate, "fee rate must be finite, got %v", req.FeeRate)
	}

	if req.Kind == types.OrderKindLimit {
		if _, ok := knownPrice(req.LimitPrice); !ok {
			return errors.New(errors.ErrCodeInvalidLimitPrice, "limit orders need a limit price greater than zero")
		}
	}

	return nil
}

// PlaceOrder validates req, records the order on inst and fills it at referencePrice
// when its fill condition already holds. Market orders always fill. A rejected
// request leaves inst untouched.
func (l *Ledger) PlaceOrder(inst *types.Instrument, referencePrice optional.Option[float64], req types.OrderRequest) (types.Order, error) {
	if err := l.validateRequest(req); err != nil {
		return types.Order{}, err
	}

	ref, ok := knownPrice(referencePrice)
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeMissingReferencePrice, "no reference price known for %s", inst.Key)
	}

	feeRate := req.FeeRate
	if !(feeRate > 0) {
		feeRate = 0
	}

	limit := optional.None[float64]()
	if req.Kind == types.OrderKindLimit {
		limit = optional.Some(req.LimitPrice.Unwrap())
	}

	order := types.Order{
		ID:            l.newID(),
		CreatedAt:     l.clock.Now(),
		InstrumentKey: inst.Key,
		Kind:          req.Kind,
		Side:          req.Side,
		Quantity:      req.Quantity,
		LimitPrice:    limit,
		FeeRate:       feeRate,
		Status:        types.OrderStatusOpen,
		ExecPrice:     optional.None[float64](),
		Player:        req.Player,
	}

	if order.CanFillAt(ref) {
		order.Status = types.OrderStatusFilled
		order.ExecPrice = optional.Some(ref)
	}

	inst.Orders = append([]types.Order{order}, inst.Orders...)

	if order.Status == types.OrderStatusFilled {
		l.applyFill(inst, order, ref)
	} else {
		l.logger.Info("Order placed",
			zap.String("instrument", inst.Key),
			zap.String("order_id", order.ID),
			zap.String("side", string(order.Side)),
			zap.Float64("quantity", order.Quantity),
			zap.Float64("limit_price", limit.TakeOr(0)),
		)
	}

	return order, nil
}

// ClosePosition sells the whole holding of inst at market.
func (l *Ledger) ClosePosition(inst *types.Instrument, referencePrice optional.Option[float64], feeRate float64, player string) (types.Order, error) {
	if inst.Position.IsFlat() {
		return types.Order{}, errors.Newf(errors.ErrCodeNoPosition, "no position to close on %s", inst.Key)
	}

	return l.PlaceOrder(inst, referencePrice, types.OrderRequest{
		Kind:       types.OrderKindMarket,
		Side:       types.SideSell,
		Quantity:   inst.Position.Quantity,
		LimitPrice: optional.None[float64](),
		FeeRate:    feeRate,
		Player:     player,
	})
}

// ApplyFill folds a filled order into the position of inst.
func (l *Ledger) ApplyFill(inst *types.Instrument, order types.Order, execPrice float64) {
	l.applyFill(inst, order, execPrice)
}

func (l *Ledger) applyFill(inst *types.Instrument, order types.Order, execPrice float64) {
	result := ApplyFill(inst.Position, order.Side, order.Quantity, execPrice, order.FeeRate)

	if result.Clamped {
		l.logger.Warn("Sell exceeds holdings, clamping position at zero",
			zap.String("instrument", inst.Key),
			zap.String("order_id", order.ID),
			zap.Float64("held", inst.Position.Quantity),
			zap.Float64("sold", order.Quantity),
		)
	}

	inst.Position = result.Position

	l.logger.Info("Order filled",
		zap.String("instrument", inst.Key),
		zap.String("order_id", order.ID),
		zap.String("kind", string(order.Kind)),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("exec_price", execPrice),
		zap.Float64("fee", result.Fee),
		zap.Float64("position_qty", inst.Position.Quantity),
		zap.Float64("position_avg", inst.Position.AverageCost),
	)
}
