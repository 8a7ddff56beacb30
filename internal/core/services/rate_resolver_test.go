package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/SscSPs/bizledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock CurrencyRepository ---
type MockCurrencyRepository struct {
	mock.Mock
}

var _ portsrepo.CurrencyRepositoryFacade = (*MockCurrencyRepository)(nil)

func (m *MockCurrencyRepository) FindCurrencyByID(ctx context.Context, id string) (*domain.Currency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) ListCurrencyHistory(ctx context.Context, currencyID, companyID string) ([]domain.CurrencyHistory, error) {
	args := m.Called(ctx, currencyID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CurrencyHistory), args.Error(1)
}

// --- Test Suite Setup ---
type RateResolverTestSuite struct {
	suite.Suite
	mockRepo *MockCurrencyRepository
	resolver portssvc.RateResolverSvc
	cc       domain.CompanyContext
	ctx      context.Context
}

func (suite *RateResolverTestSuite) SetupTest() {
	suite.mockRepo = new(MockCurrencyRepository)
	suite.resolver = services.NewRateResolver(suite.mockRepo)
	suite.cc = companyContext()
	suite.ctx = context.Background()
}

func TestRateResolverTestSuite(t *testing.T) {
	suite.Run(t, new(RateResolverTestSuite))
}

func usdHistory() []domain.CurrencyHistory {
	co := companyID
	feb1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return []domain.CurrencyHistory{
		{ID: "g1", CurrencyID: usd, ExchangeRate: dec("12000"), StartDate: jan1, EndDate: &feb1},
		{ID: "g2", CurrencyID: usd, ExchangeRate: dec("12100"), StartDate: feb1},
		{ID: "c1", CurrencyID: usd, CompanyID: &co, ExchangeRate: dec("12500"), StartDate: mar1, EndDate: &apr1},
	}
}

func (suite *RateResolverTestSuite) TestResolveRate_DefaultCurrencyIsOne() {
	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, uzs, mar1)

	suite.Require().NoError(err)
	suite.True(rate.Equal(decimal.NewFromInt(1)))
	suite.mockRepo.AssertNotCalled(suite.T(), "ListCurrencyHistory", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RateResolverTestSuite) TestResolveRate_CompanyRowWins() {
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(usdHistory(), nil).Once()

	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	suite.Require().NoError(err)
	suite.Equal("12500", rate.String())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RateResolverTestSuite) TestResolveRate_GlobalWhenCompanyRowDoesNotCover() {
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(usdHistory(), nil)

	// April 1 is the exclusive end of the company bucket.
	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, apr1)
	suite.Require().NoError(err)
	suite.Equal("12100", rate.String())

	rate, err = suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)
	suite.Equal("12000", rate.String())
}

func (suite *RateResolverTestSuite) TestResolveRate_LatestStartWinsOnOverlap() {
	overlapping := []domain.CurrencyHistory{
		{ID: "old", CurrencyID: eur, ExchangeRate: dec("13000"), StartDate: jan1},
		{ID: "new", CurrencyID: eur, ExchangeRate: dec("13300"), StartDate: mar1},
	}
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, eur, companyID).Return(overlapping, nil)

	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, eur, apr1)

	suite.Require().NoError(err)
	suite.Equal("13300", rate.String())
}

func (suite *RateResolverTestSuite) TestResolveRate_FallsBackToOne() {
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(usdHistory(), nil)

	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	suite.Require().NoError(err)
	suite.True(rate.Equal(decimal.NewFromInt(1)))
}

func (suite *RateResolverTestSuite) TestResolveRate_NoHistoryFallsBackToOne() {
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, eur, companyID).Return([]domain.CurrencyHistory{}, nil)

	rate, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, eur, mar1)

	suite.Require().NoError(err)
	suite.True(rate.Equal(decimal.NewFromInt(1)))
}

func (suite *RateResolverTestSuite) TestResolveRate_RepositoryError() {
	dbErr := errors.New("connection reset")
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(nil, dbErr)

	_, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, mar1)

	suite.Require().Error(err)
	suite.ErrorIs(err, dbErr)
}

func (suite *RateResolverTestSuite) TestResolveRate_MissingDefaultCurrency() {
	cc := suite.cc
	cc.DefaultCurrencyID = ""

	_, err := suite.resolver.ResolveRate(suite.ctx, cc, usd, mar1)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConfiguration)
	suite.mockRepo.AssertNotCalled(suite.T(), "ListCurrencyHistory", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RateResolverTestSuite) TestResolveRate_EmptyCurrency() {
	_, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, "", mar1)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RateResolverTestSuite) TestBatchResolver_LoadsHistoryOnce() {
	batch := services.NewBatchRateResolver(suite.mockRepo)
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(usdHistory(), nil).Once()

	for _, day := range []int{5, 10, 20} {
		rate, err := batch.ResolveRate(suite.ctx, suite.cc, usd, time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
		suite.Require().NoError(err)
		suite.Equal("12500", rate.String())
	}
	suite.mockRepo.AssertNumberOfCalls(suite.T(), "ListCurrencyHistory", 1)
}

func (suite *RateResolverTestSuite) TestPlainResolver_ReadsEveryCall() {
	suite.mockRepo.On("ListCurrencyHistory", suite.ctx, usd, companyID).Return(usdHistory(), nil)

	for i := 0; i < 2; i++ {
		_, err := suite.resolver.ResolveRate(suite.ctx, suite.cc, usd, mar1)
		suite.Require().NoError(err)
	}
	suite.mockRepo.AssertNumberOfCalls(suite.T(), "ListCurrencyHistory", 2)
}
