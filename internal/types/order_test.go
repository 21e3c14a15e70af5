package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func limitOrder(side Side, limit float64) Order {
	return Order{
		Kind:       OrderKindLimit,
		Side:       side,
		Quantity:   1,
		LimitPrice: optional.Some(limit),
		Status:     OrderStatusOpen,
		ExecPrice:  optional.None[float64](),
	}
}

func (suite *OrderTestSuite) TestCanFillAtBuyLimit() {
	order := limitOrder(SideBuy, 100)
	suite.True(order.CanFillAt(99))
	suite.True(order.CanFillAt(100))
	suite.False(order.CanFillAt(100.01))
}

func (suite *OrderTestSuite) TestCanFillAtSellLimit() {
	order := limitOrder(SideSell, 100)
	suite.False(order.CanFillAt(99.99))
	suite.True(order.CanFillAt(100))
	suite.True(order.CanFillAt(150))
}

func (suite *OrderTestSuite) TestCanFillAtMarket() {
	order := Order{Kind: OrderKindMarket, Side: SideSell, Quantity: 1}
	suite.True(order.CanFillAt(0.0001))
}

func (suite *OrderTestSuite) TestCanFillAtWithoutLimitPrice() {
	order := Order{Kind: OrderKindLimit, Side: SideBuy, Quantity: 1, LimitPrice: optional.None[float64]()}
	suite.False(order.CanFillAt(1))
}

func (suite *OrderTestSuite) TestNotional() {
	order := limitOrder(SideBuy, 10)
	order.Quantity = 3
	suite.Equal(0.0, order.Notional())

	order.ExecPrice = optional.Some(9.5)
	suite.Equal(28.5, order.Notional())
}

func (suite *OrderTestSuite) TestPositionUnrealizedPnL() {
	suite.Equal(0.0, Position{}.UnrealizedPnL(10))
	suite.Equal(20.0, Position{Quantity: 2, AverageCost: 5}.UnrealizedPnL(15))
	suite.Equal(-4.0, Position{Quantity: 2, AverageCost: 5}.UnrealizedPnL(3))
}

func (suite *OrderTestSuite) TestPriceHistoryPrices() {
	history := PriceHistory{Samples: []PriceSample{{Price: 1}, {Price: 2}, {Price: 3}}}
	suite.Equal([]float64{1, 2, 3}, history.Prices())
	suite.Equal(3, history.Len())
	suite.True(Last(nil).IsNone())
	suite.Equal(optional.Some(2.0), Last([]optional.Option[float64]{optional.None[float64](), optional.Some(2.0)}))
}
