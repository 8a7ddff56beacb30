package mapping

import (
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
)

// ToDomainSourceDocument converts a document row.
func ToDomainSourceDocument(m models.SourceDocument) domain.SourceDocument {
	return domain.SourceDocument{
		Source:     domain.SourceRef{Kind: domain.SourceKind(m.SourceType), ID: m.ID},
		CompanyID:  m.CompanyID,
		ClientID:   m.ClientID,
		CurrencyID: m.CurrencyID,
		Total:      m.Total,
		Date:       m.Date,
	}
}
