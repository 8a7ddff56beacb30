package mapping

import (
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
)

// ToDomainClient converts a model Client to a domain Client
func ToDomainClient(m models.Client) domain.Client {
	return domain.Client{ID: m.ID, CompanyID: m.CompanyID, Name: m.Name, Balance: m.Balance}
}

// ToDomainCashRegister converts a model CashRegister to a domain CashRegister
func ToDomainCashRegister(m models.CashRegister) domain.CashRegister {
	return domain.CashRegister{ID: m.ID, CompanyID: m.CompanyID, Name: m.Name, CurrencyID: m.CurrencyID, Balance: m.Balance}
}

// ClientBalance is the lockable balance view of a client.
func ClientBalance(m models.Client) domain.Balance {
	return domain.Balance{Target: domain.ClientTarget(m.ID), CompanyID: m.CompanyID, Name: m.Name, Amount: m.Balance}
}

// CashRegisterBalance is the lockable balance view of a cash register.
func CashRegisterBalance(m models.CashRegister) domain.Balance {
	return domain.Balance{
		Target:     domain.CashTarget(m.ID),
		CompanyID:  m.CompanyID,
		Name:       m.Name,
		CurrencyID: m.CurrencyID,
		Amount:     m.Balance,
	}
}
