package ledger

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	clock  *clock.Fake
	ledger *Ledger
	inst   *types.Instrument
	nextID int
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.clock = clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	suite.ledger = NewLedger(suite.clock, nil)
	suite.nextID = 0
	suite.ledger.newID = func() string {
		suite.nextID++

		return fmt.Sprintf("order-%d", suite.nextID)
	}
	suite.inst = types.NewInstrument(types.CryptoIdentity{ProviderID: "bitcoin"}, "BTC", "Bitcoin")
}

func market(side types.Side, qty, fee float64) types.OrderRequest {
	return types.OrderRequest{
		Kind:       types.OrderKindMarket,
		Side:       side,
		Quantity:   qty,
		LimitPrice: optional.None[float64](),
		FeeRate:    fee,
		Player:     "alice",
	}
}

func limit(side types.Side, qty, price float64) types.OrderRequest {
	return types.OrderRequest{
		Kind:       types.OrderKindLimit,
		Side:       side,
		Quantity:   qty,
		LimitPrice: optional.Some(price),
		FeeRate:    0,
		Player:     "alice",
	}
}

func (suite *LedgerTestSuite) place(ref float64, req types.OrderRequest) types.Order {
	order, err := suite.ledger.PlaceOrder(suite.inst, optional.Some(ref), req)
	suite.Require().NoError(err)

	return order
}

func (suite *LedgerTestSuite) TestMarketBuyFillsAtReference() {
	order := suite.place(100, market(types.SideBuy, 2, 0))

	suite.Equal("order-1", order.ID)
	suite.Equal(suite.clock.Now(), order.CreatedAt)
	suite.Equal("cg:bitcoin", order.InstrumentKey)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(100.0, order.ExecPrice.Unwrap())
	suite.True(order.LimitPrice.IsNone())
	suite.Equal("alice", order.Player)

	suite.Equal(types.Position{Quantity: 2, AverageCost: 100}, suite.inst.Position)
	suite.Equal([]types.Order{order}, suite.inst.Orders)
}

func (suite *LedgerTestSuite) TestWeightedAverageIncludesFees() {
	suite.place(100, market(types.SideBuy, 2, 0))
	suite.place(200, market(types.SideBuy, 2, 0.01))

	// (100×2 + 200×2 + 200×2×0.01) / 4
	suite.InDelta(4.0, suite.inst.Position.Quantity, 1e-12)
	suite.InDelta(151.0, suite.inst.Position.AverageCost, 1e-9)
}

func (suite *LedgerTestSuite) TestOrdersAreStoredNewestFirst() {
	first := suite.place(100, market(types.SideBuy, 1, 0))
	suite.clock.Advance(time.Minute)
	second := suite.place(101, market(types.SideBuy, 1, 0))

	suite.Equal([]string{second.ID, first.ID}, []string{suite.inst.Orders[0].ID, suite.inst.Orders[1].ID})
	suite.True(suite.inst.Orders[0].CreatedAt.After(suite.inst.Orders[1].CreatedAt))
}

func (suite *LedgerTestSuite) TestSellKeepsAverageUntilFlat() {
	suite.place(100, market(types.SideBuy, 4, 0))

	suite.place(150, market(types.SideSell, 1, 0.01))
	suite.Equal(types.Position{Quantity: 3, AverageCost: 100}, suite.inst.Position)

	suite.place(90, market(types.SideSell, 3, 0))
	suite.Equal(types.Position{Quantity: 0, AverageCost: 0}, suite.inst.Position)
}

func (suite *LedgerTestSuite) TestOversellClampsAtZero() {
	suite.place(100, market(types.SideBuy, 1, 0))
	order := suite.place(100, market(types.SideSell, 5, 0))

	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(5.0, order.Quantity)
	suite.Equal(types.Position{Quantity: 0, AverageCost: 0}, suite.inst.Position)
}

func (suite *LedgerTestSuite) TestNegativeFeeIsClamped() {
	order := suite.place(100, market(types.SideBuy, 1, -0.5))

	suite.Equal(0.0, order.FeeRate)
	suite.Equal(100.0, suite.inst.Position.AverageCost)
}

func (suite *LedgerTestSuite) TestLimitBuyFillsImmediatelyAtReference() {
	order := suite.place(95, limit(types.SideBuy, 1, 100))

	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(95.0, order.ExecPrice.Unwrap())
	suite.Equal(100.0, order.LimitPrice.Unwrap())
}

func (suite *LedgerTestSuite) TestLimitSellFillsWhenReferenceAtOrAboveLimit() {
	suite.place(100, market(types.SideBuy, 2, 0))

	order := suite.place(110, limit(types.SideSell, 1, 110))
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(1.0, suite.inst.Position.Quantity)
}

func (suite *LedgerTestSuite) TestLimitOrdersRestWhenConditionFails() {
	buy := suite.place(105, limit(types.SideBuy, 1, 100))
	sell := suite.place(105, limit(types.SideSell, 1, 110))

	suite.Equal(types.OrderStatusOpen, buy.Status)
	suite.True(buy.ExecPrice.IsNone())
	suite.Equal(types.OrderStatusOpen, sell.Status)
	suite.True(suite.inst.Position.IsFlat())
	suite.Len(suite.inst.OpenOrders(), 2)
}

func (suite *LedgerTestSuite) TestValidationLeavesStateUntouched() {
	suite.place(100, market(types.SideBuy, 1, 0))
	before := suite.inst.Clone()

	tests := []struct {
		name string
		ref  optional.Option[float64]
		req  types.OrderRequest
		code errors.ErrorCode
	}{
		{"zero quantity", optional.Some(100.0), market(types.SideBuy, 0, 0), errors.ErrCodeInvalidQuantity},
		{"negative quantity", optional.Some(100.0), market(types.SideBuy, -1, 0), errors.ErrCodeInvalidQuantity},
		{"NaN quantity", optional.Some(100.0), market(types.SideBuy, math.NaN(), 0), errors.ErrCodeInvalidQuantity},
		{"infinite quantity", optional.Some(100.0), market(types.SideBuy, math.Inf(1), 0), errors.ErrCodeInvalidQuantity},
		{"missing limit", optional.Some(100.0), types.OrderRequest{Kind: types.OrderKindLimit, Side: types.SideBuy, Quantity: 1, LimitPrice: optional.None[float64](), FeeRate: 0, Player: ""}, errors.ErrCodeInvalidLimitPrice},
		{"zero limit", optional.Some(100.0), limit(types.SideBuy, 1, 0), errors.ErrCodeInvalidLimitPrice},
		{"negative limit", optional.Some(100.0), limit(types.SideSell, 1, -3), errors.ErrCodeInvalidLimitPrice},
		{"infinite limit", optional.Some(100.0), limit(types.SideBuy, 1, math.Inf(1)), errors.ErrCodeInvalidLimitPrice},
		{"NaN limit", optional.Some(100.0), limit(types.SideBuy, 1, math.NaN()), errors.ErrCodeInvalidLimitPrice},
		{"infinite fee", optional.Some(100.0), market(types.SideBuy, 1, math.Inf(1)), errors.ErrCodeInvalidFeeRate},
		{"negative infinite fee", optional.Some(100.0), market(types.SideBuy, 1, math.Inf(-1)), errors.ErrCodeInvalidFeeRate},
		{"NaN fee", optional.Some(100.0), market(types.SideBuy, 1, math.NaN()), errors.ErrCodeInvalidFeeRate},
		{"no reference price", optional.None[float64](), market(types.SideBuy, 1, 0), errors.ErrCodeMissingReferencePrice},
		{"zero reference price", optional.Some(0.0), market(types.SideBuy, 1, 0), errors.ErrCodeMissingReferencePrice},
		{"unknown kind", optional.Some(100.0), types.OrderRequest{Kind: "stop", Side: types.SideBuy, Quantity: 1, LimitPrice: optional.None[float64](), FeeRate: 0, Player: ""}, errors.ErrCodeInvalidOrderKind},
		{"unknown side", optional.Some(100.0), types.OrderRequest{Kind: types.OrderKindMarket, Side: "short", Quantity: 1, LimitPrice: optional.None[float64](), FeeRate: 0, Player: ""}, errors.ErrCodeInvalidSide},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.ledger.PlaceOrder(suite.inst, tt.ref, tt.req)
			suite.Error(err)
			suite.True(errors.IsValidationError(err))
			suite.Equal(tt.code, errors.GetCode(err))
			suite.Equal(before, suite.inst)
		})
	}
}

func (suite *LedgerTestSuite) TestCloseRejectsNonFiniteFee() {
	suite.place(100, market(types.SideBuy, 2, 0))

	for _, fee := range []float64{math.Inf(1), math.NaN()} {
		_, err := suite.ledger.ClosePosition(suite.inst, optional.Some(100.0), fee, "alice")
		suite.Equal(errors.ErrCodeInvalidFeeRate, errors.GetCode(err))
		suite.Equal(2.0, suite.inst.Position.Quantity)
	}
}

func (suite *LedgerTestSuite) TestCloseWithoutPosition() {
	_, err := suite.ledger.ClosePosition(suite.inst, optional.Some(100.0), 0, "alice")
	suite.Error(err)
	suite.True(errors.IsNoPositionError(err))
	suite.Empty(suite.inst.Orders)
}

func (suite *LedgerTestSuite) TestCloseSellsEverything() {
	suite.place(100, market(types.SideBuy, 3, 0))
	suite.place(120, market(types.SideBuy, 1.5, 0))

	order, err := suite.ledger.ClosePosition(suite.inst, optional.Some(130.0), 0.002, "bob")
	suite.NoError(err)
	suite.Equal(types.OrderKindMarket, order.Kind)
	suite.Equal(types.SideSell, order.Side)
	suite.InDelta(4.5, order.Quantity, 1e-12)
	suite.Equal(0.002, order.FeeRate)
	suite.Equal("bob", order.Player)
	suite.Equal(types.Position{Quantity: 0, AverageCost: 0}, suite.inst.Position)
	suite.Len(suite.inst.Orders, 3)
}

func (suite *LedgerTestSuite) TestCloseWithoutReferencePrice() {
	suite.place(100, market(types.SideBuy, 1, 0))

	_, err := suite.ledger.ClosePosition(suite.inst, optional.None[float64](), 0, "alice")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingReferencePrice))
	suite.Equal(1.0, suite.inst.Position.Quantity)
}

func (suite *LedgerTestSuite) TestPositionInvariantsHoldUnderRandomFlow() {
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 500; i++ {
		ref := 50 + rng.Float64()*100
		side := types.SideBuy
		if rng.Intn(2) == 0 {
			side = types.SideSell
		}

		req := market(side, 0.1+rng.Float64()*3, rng.Float64()*0.01)
		if rng.Intn(3) == 0 {
			req = limit(side, 0.1+rng.Float64()*3, 50+rng.Float64()*100)
		}

		_, err := suite.ledger.PlaceOrder(suite.inst, optional.Some(ref), req)
		suite.Require().NoError(err)
		suite.ledger.Reconcile(suite.inst, optional.Some(50+rng.Float64()*100))

		pos := suite.inst.Position
		suite.GreaterOrEqual(pos.Quantity, 0.0)
		suite.GreaterOrEqual(pos.AverageCost, 0.0)

		if pos.Quantity == 0 {
			suite.Equal(0.0, pos.AverageCost)
		}
	}
}
