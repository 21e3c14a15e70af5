package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidQuantity, "invalid quantity")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidQuantity, err.Code)
	suite.Equal("invalid quantity", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInstrumentNotFound, "instrument %s not found", "cg:bitcoin")
	suite.Equal(ErrCodeInstrumentNotFound, err.Code)
	suite.Equal("instrument cg:bitcoin not found", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeMarketDataFetchFailed, "failed to fetch price", cause)
	suite.Equal(ErrCodeMarketDataFetchFailed, err.Code)
	suite.Equal(cause, err.Cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("timeout")
	err := Wrapf(ErrCodeMarketDataFetchFailed, cause, "failed to fetch %s", "bitcoin")
	suite.Equal("failed to fetch bitcoin", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	suite.Equal("[103] invalid quantity", New(ErrCodeInvalidQuantity, "invalid quantity").Error())

	err := Wrap(ErrCodeMarketDataFetchFailed, "failed to fetch price", errors.New("timeout"))
	suite.Equal("[700] failed to fetch price: timeout", err.Error())
}

func (suite *ErrorTestSuite) TestGetCode() {
	suite.Equal(ErrCodeNoPosition, GetCode(New(ErrCodeNoPosition, "no position")))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("standard error")))

	wrapped := fmt.Errorf("placing order: %w", New(ErrCodeInvalidLimitPrice, "bad limit"))
	suite.Equal(ErrCodeInvalidLimitPrice, GetCode(wrapped))
}

func (suite *ErrorTestSuite) TestCategories() {
	tests := []struct {
		name       string
		err        error
		validation bool
		notFound   bool
		noPosition bool
		fetch      bool
		persist    bool
	}{
		{name: "quantity", err: New(ErrCodeInvalidQuantity, "q"), validation: true},
		{name: "missing price", err: New(ErrCodeMissingReferencePrice, "p"), validation: true},
		{name: "not found", err: New(ErrCodeInstrumentNotFound, "n"), notFound: true},
		{name: "no position", err: New(ErrCodeNoPosition, "c"), noPosition: true},
		{name: "fetch", err: New(ErrCodeMarketDataFetchFailed, "f"), fetch: true},
		{name: "rate gate", err: New(ErrCodeRateLimitWaitAborted, "g"), fetch: true},
		{name: "persist", err: New(ErrCodePersistFailed, "s"), persist: true},
		{name: "plain", err: errors.New("plain")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.validation, IsValidationError(tt.err))
			suite.Equal(tt.notFound, IsNotFoundError(tt.err))
			suite.Equal(tt.noPosition, IsNoPositionError(tt.err))
			suite.Equal(tt.fetch, IsFetchError(tt.err))
			suite.Equal(tt.persist, IsPersistenceError(tt.err))
		})
	}
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLoadFailed, "load failed", cause)
	suite.True(Is(err, cause))

	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeLoadFailed, coded.Code)
}
