package mapping

import (
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
)

// ToDomainRoundingPolicy converts a company_rounding_policies row.
func ToDomainRoundingPolicy(m models.RoundingPolicy) domain.RoundingPolicy {
	return domain.RoundingPolicy{
		Decimals:        int(m.Decimals),
		Enabled:         m.Enabled,
		Direction:       domain.RoundingDirection(m.Direction),
		CustomThreshold: m.CustomThreshold,
	}
}

// ToDomainCompanyContext assembles the context of one company from its
// currency row and its rounding policies. Missing currencies stay empty so
// that CompanyContext.Validate reports them.
func ToDomainCompanyContext(c models.CompanyCurrencies, policies []models.RoundingPolicy) domain.CompanyContext {
	cc := domain.CompanyContext{
		CompanyID: c.CompanyID,
		Rounding:  make(map[domain.RoundingContext]domain.RoundingPolicy, len(policies)),
	}
	if c.DefaultCurrencyID.Valid {
		cc.DefaultCurrencyID = c.DefaultCurrencyID.String
	}
	if c.ReportCurrencyID.Valid {
		cc.ReportCurrencyID = c.ReportCurrencyID.String
	}
	for _, p := range policies {
		if p.CompanyID != c.CompanyID {
			continue
		}
		cc.Rounding[domain.RoundingContext(p.Context)] = ToDomainRoundingPolicy(p)
	}
	return cc
}
