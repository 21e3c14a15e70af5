package indicator

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/stretchr/testify/suite"
)

type MAUnitTestSuite struct {
	suite.Suite
}

func TestMAUnitSuite(t *testing.T) {
	suite.Run(t, new(MAUnitTestSuite))
}

func (suite *MAUnitTestSuite) TestNewMA() {
	ma := NewMA()
	suite.NotNil(ma)

	// Cast to *MA to check default values
	maImpl := ma.(*MA)
	suite.Equal(14, maImpl.period)
	suite.Equal(14, ma.Period())
}

func (suite *MAUnitTestSuite) TestName() {
	ma := NewMA()
	suite.Equal(types.IndicatorTypeMA, ma.Name())
}

func (suite *MAUnitTestSuite) TestConfigValid() {
	ma := NewMA()
	maImpl := ma.(*MA)

	err := ma.Config(10)
	suite.NoError(err)
	suite.Equal(10, maImpl.period)
}

func (suite *MAUnitTestSuite) TestConfigWithFloat64() {
	ma := NewMA()
	maImpl := ma.(*MA)

	// MA supports float64 conversion
	err := ma.Config(15.0)
	suite.NoError(err)
	suite.Equal(15, maImpl.period)
}

func (suite *MAUnitTestSuite) TestConfigInvalidParamCount() {
	ma := NewMA()

	err := ma.Config()
	suite.Error(err)
	suite.Contains(err.Error(), "expects 1 parameter")

	err = ma.Config(10, 20)
	suite.Error(err)
}

func (suite *MAUnitTestSuite) TestConfigInvalidPeriod() {
	ma := NewMA()

	err := ma.Config("invalid")
	suite.Error(err)
	suite.Contains(err.Error(), "invalid type for period")

	err = ma.Config(0)
	suite.Error(err)
	suite.Contains(err.Error(), "must be a positive integer")

	err = ma.Config(-5)
	suite.Error(err)
}

func (suite *MAUnitTestSuite) TestComputeSimpleSeries() {
	ma := NewMA()
	suite.NoError(ma.Config(3))

	got := ma.Compute([]float64{1, 2, 3, 4, 5})
	suite.Equal([]optional.Option[float64]{
		optional.None[float64](),
		optional.None[float64](),
		optional.Some(2.0),
		optional.Some(3.0),
		optional.Some(4.0),
	}, got)
}

func (suite *MAUnitTestSuite) TestComputeMatchesTrailingMean() {
	prices := []float64{10.5, 11.25, 9.75, 12, 13.5, 12.25, 14, 15.5, 13.75, 16}
	period := 4

	got := SMA(prices, period)
	suite.Len(got, len(prices))

	for i := range prices {
		if i < period-1 {
			suite.True(got[i].IsNone(), "index %d should be undefined", i)

			continue
		}

		sum := 0.0
		for _, p := range prices[i-period+1 : i+1] {
			sum += p
		}

		suite.InDelta(sum/float64(period), got[i].Unwrap(), 1e-9, "index %d", i)
	}
}

func (suite *MAUnitTestSuite) TestComputeShortSeries() {
	got := SMA([]float64{1, 2}, 3)
	suite.Len(got, 2)
	suite.True(got[0].IsNone())
	suite.True(got[1].IsNone())

	suite.Empty(SMA(nil, 3))
}

func (suite *MAUnitTestSuite) TestComputePeriodOne() {
	got := SMA([]float64{4, 5, 6}, 1)
	suite.Equal([]optional.Option[float64]{optional.Some(4.0), optional.Some(5.0), optional.Some(6.0)}, got)
}
