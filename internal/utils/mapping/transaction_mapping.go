package mapping

import (
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		ID:          d.ID,
		CompanyID:   d.CompanyID,
		Type:        int16(d.Type),
		IsDebt:      d.IsDebt,
		Amount:      d.Amount,
		OrigAmount:  d.OrigAmount,
		CurrencyID:  d.CurrencyID,
		RepRate:     d.RepRate,
		RepAmount:   d.RepAmount,
		DefRate:     d.DefRate,
		DefAmount:   d.DefAmount,
		ClientID:    ToNullString(d.ClientID),
		CashID:      ToNullString(d.CashID),
		SourceType:  string(d.Source.Kind),
		SourceID:    d.Source.ID,
		CategoryID:  ToNullString(d.CategoryID),
		ProjectID:   ToNullString(d.ProjectID),
		UserID:      d.UserID,
		Note:        d.Note,
		Date:        d.Date,
		IsDeleted:   d.IsDeleted,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Type:        domain.TransactionType(m.Type),
		IsDebt:      m.IsDebt,
		Amount:      m.Amount,
		OrigAmount:  m.OrigAmount,
		CurrencyID:  m.CurrencyID,
		RepRate:     m.RepRate,
		RepAmount:   m.RepAmount,
		DefRate:     m.DefRate,
		DefAmount:   m.DefAmount,
		ClientID:    FromNullString(m.ClientID),
		CashID:      FromNullString(m.CashID),
		Source:      domain.SourceRef{Kind: domain.SourceKind(m.SourceType), ID: m.SourceID},
		CategoryID:  FromNullString(m.CategoryID),
		ProjectID:   FromNullString(m.ProjectID),
		UserID:      m.UserID,
		Note:        m.Note,
		Date:        m.Date,
		IsDeleted:   m.IsDeleted,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTransactionSlice converts a slice of model Transactions to a slice of domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
