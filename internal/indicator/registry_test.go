package indicator

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/stretchr/testify/suite"
)

// mockIndicator is a simple mock indicator for testing the registry
type mockIndicator struct {
	name types.IndicatorType
}

func newMockIndicator(name types.IndicatorType) *mockIndicator {
	return &mockIndicator{name: name}
}

func (m *mockIndicator) Name() types.IndicatorType {
	return m.name
}

func (m *mockIndicator) Config(params ...any) error {
	return nil
}

func (m *mockIndicator) Period() int {
	return 1
}

func (m *mockIndicator) Compute(prices []float64) []optional.Option[float64] {
	return noneSeries(len(prices))
}

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	registry := NewIndicatorRegistry()

	indicator := newMockIndicator(types.IndicatorTypeRSI)
	suite.NoError(registry.RegisterIndicator(indicator))

	retrieved, err := registry.GetIndicator(types.IndicatorTypeRSI)
	suite.NoError(err)
	suite.Equal(indicator, retrieved)
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeMA)))

	err := registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeMA))
	suite.Error(err)
	suite.Contains(err.Error(), "already registered")
}

func (suite *RegistryTestSuite) TestGetMissing() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator(types.IndicatorTypeMA)
	suite.Error(err)
	suite.Contains(err.Error(), "not found")
}

func (suite *RegistryTestSuite) TestListAndRemove() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeRSI)))
	suite.NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeMA)))

	suite.Equal([]types.IndicatorType{types.IndicatorTypeMA, types.IndicatorTypeRSI}, registry.ListIndicators())

	suite.NoError(registry.RemoveIndicator(types.IndicatorTypeMA))
	suite.Equal([]types.IndicatorType{types.IndicatorTypeRSI}, registry.ListIndicators())

	err := registry.RemoveIndicator(types.IndicatorTypeMA)
	suite.Error(err)
}
