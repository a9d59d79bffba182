package snapshot

import (
	"time"

	"github.com/carson-networks/up-bridge/internal/coordinator"
	"github.com/carson-networks/up-bridge/internal/upapi"
)

// snapshotReader is the coordinator surface the read handlers need.
type snapshotReader interface {
	Snapshot() *coordinator.Snapshot
}

// Account is the API response model for a synchronized account.
type Account struct {
	ID          string `json:"id" doc:"Up account id"`
	DisplayName string `json:"displayName" doc:"Account display name"`
	AccountType string `json:"accountType" doc:"SAVER or TRANSACTIONAL"`
	Balance     string `json:"balance" doc:"Decimal balance as reported by Up"`
	Currency    string `json:"currency" doc:"ISO 4217 currency code"`
}

// Transaction is the API response model for a synchronized transaction.
type Transaction struct {
	ID                string `json:"id" doc:"Up transaction id"`
	Status            string `json:"status" doc:"HELD or SETTLED"`
	Description       string `json:"description" doc:"Transaction description"`
	Amount            string `json:"amount" doc:"Signed decimal amount"`
	Currency          string `json:"currency" doc:"ISO 4217 currency code"`
	AccountID         string `json:"accountId" doc:"Owning account id"`
	TransferAccountID string `json:"transferAccountId,omitempty" doc:"Transfer counterpart account id, absent for non-transfers"`
	CreatedAt         string `json:"createdAt" doc:"Creation timestamp from Up"`
}

// Category is the API response model for a spending category.
type Category struct {
	ID   string `json:"id" doc:"Category id"`
	Name string `json:"name" doc:"Category display name"`
}

// Tag is the API response model for a transaction tag.
type Tag struct {
	ID string `json:"id" doc:"Tag id"`
}

// Summary is the derived snapshot summary.
type Summary struct {
	TotalBalance     string `json:"totalBalance" doc:"Sum of parseable account balances"`
	AccountCount     int    `json:"accountCount" doc:"Number of synchronized accounts"`
	TransactionCount int    `json:"transactionCount" doc:"Number of synchronized transactions"`
}

func toAccount(account upapi.Account) Account {
	return Account{
		ID:          account.ID,
		DisplayName: account.Attributes.DisplayName,
		AccountType: account.Attributes.AccountType,
		Balance:     account.Attributes.Balance.Value,
		Currency:    account.Attributes.Balance.CurrencyCode,
	}
}

func toAccounts(accounts []upapi.Account) []Account {
	converted := make([]Account, len(accounts))
	for i, account := range accounts {
		converted[i] = toAccount(account)
	}
	return converted
}

func toTransaction(transaction upapi.Transaction) Transaction {
	return Transaction{
		ID:                transaction.ID,
		Status:            transaction.Attributes.Status,
		Description:       transaction.Attributes.Description,
		Amount:            transaction.Attributes.Amount.Value,
		Currency:          transaction.Attributes.Amount.CurrencyCode,
		AccountID:         transaction.AccountID(),
		TransferAccountID: transaction.TransferAccountID(),
		CreatedAt:         transaction.Attributes.CreatedAt,
	}
}

func toTransactions(transactions []upapi.Transaction) []Transaction {
	converted := make([]Transaction, len(transactions))
	for i, transaction := range transactions {
		converted[i] = toTransaction(transaction)
	}
	return converted
}

func toCategories(categories []upapi.Category) []Category {
	converted := make([]Category, len(categories))
	for i, category := range categories {
		converted[i] = Category{ID: category.ID, Name: category.Attributes.Name}
	}
	return converted
}

func toTags(tags []upapi.Tag) []Tag {
	converted := make([]Tag, len(tags))
	for i, tag := range tags {
		converted[i] = Tag{ID: tag.ID}
	}
	return converted
}

func toSummary(summary coordinator.Summary) Summary {
	return Summary{
		TotalBalance:     summary.TotalBalance.String(),
		AccountCount:     summary.AccountCount,
		TransactionCount: summary.TransactionCount,
	}
}

func formatRefreshedAt(refreshedAt time.Time) string {
	return refreshedAt.Format(time.RFC3339)
}
