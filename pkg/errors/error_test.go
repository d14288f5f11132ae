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
	err := New(ErrCodeInvalidConfiguration, "invalid configuration")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidConfiguration, err.Code)
	suite.Equal("invalid configuration", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeDataAlignment, "symbol %s: %d bars but %d signals", "AAPL", 10, 9)
	suite.NotNil(err)
	suite.Equal(ErrCodeDataAlignment, err.Code)
	suite.Equal("symbol AAPL: 10 bars but 9 signals", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "failed to read trades", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal("failed to read trades", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeDataNotFound, cause, "no bars for symbol: %s", "AAPL")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("no bars for symbol: AAPL", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidConfiguration, "invalid configuration")
	suite.Equal("[100] invalid configuration", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidConfiguration, "invalid configuration")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInsufficientCapital, "order quantity rounded to zero")
	suite.Equal(ErrCodeInsufficientCapital, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeDataNotFound, "data not found")
	err := fmt.Errorf("outer context: %w", cause)
	suite.Equal(ErrCodeDataNotFound, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromPlainError() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInsufficientCapital, "order quantity rounded to zero")
	suite.True(HasCode(err, ErrCodeInsufficientCapital))
	suite.False(HasCode(err, ErrCodeDataNotFound))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := New(ErrCodeDataNotFound, "data not found")
	wrapped := fmt.Errorf("outer: %w", cause)

	suite.True(Is(wrapped, cause))

	var target *Error
	suite.True(As(wrapped, &target))
	suite.Equal(ErrCodeDataNotFound, target.Code)
}
