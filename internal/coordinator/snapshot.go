package coordinator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/up-bridge/internal/upapi"
)

// Snapshot is the canonical synchronized state: the four resource
// collections plus the derived summary. A Snapshot is never mutated after
// publication; refreshes build a new one and swap the pointer.
type Snapshot struct {
	Accounts     []upapi.Account
	Transactions []upapi.Transaction
	Categories   []upapi.Category
	Tags         []upapi.Tag
	Summary      Summary
	RefreshedAt  time.Time
}

// Summary is derived from the account and transaction collections on every
// successful refresh.
type Summary struct {
	TotalBalance     decimal.Decimal
	AccountCount     int
	TransactionCount int
}

// newSummary totals the parseable account balances. A malformed balance is
// skipped, never fatal; the account still counts toward AccountCount.
func newSummary(accounts []upapi.Account, transactions []upapi.Transaction, logger *logrus.Logger) Summary {
	total := decimal.Zero
	for _, account := range accounts {
		value, err := decimal.NewFromString(account.Attributes.Balance.Value)
		if err != nil {
			logger.WithError(err).Warnf("Summary.skipping unparseable balance on account %v", account.ID)
			continue
		}
		total = total.Add(value)
	}

	return Summary{
		TotalBalance:     total,
		AccountCount:     len(accounts),
		TransactionCount: len(transactions),
	}
}

// merge folds a partial-refresh fragment into the base snapshot: incoming
// accounts and transactions with a matching id replace the existing entry,
// unmatched incoming entries are added, and everything else is untouched.
// Categories and tags always come from the base; partial refreshes do not
// refetch them. The summary is recomputed from the merged account set.
func merge(base, fragment *Snapshot, logger *logrus.Logger) *Snapshot {
	if base == nil {
		base = &Snapshot{}
	}

	merged := &Snapshot{
		Accounts:     mergeAccounts(base.Accounts, fragment.Accounts),
		Transactions: mergeTransactions(base.Transactions, fragment.Transactions),
		Categories:   base.Categories,
		Tags:         base.Tags,
	}
	merged.Summary = newSummary(merged.Accounts, merged.Transactions, logger)
	return merged
}

func mergeAccounts(existing, incoming []upapi.Account) []upapi.Account {
	merged := make([]upapi.Account, len(existing))
	copy(merged, existing)

	for _, account := range incoming {
		replaced := false
		for i := range merged {
			if merged[i].ID == account.ID {
				merged[i] = account
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, account)
		}
	}
	return merged
}

func mergeTransactions(existing, incoming []upapi.Transaction) []upapi.Transaction {
	merged := make([]upapi.Transaction, len(existing))
	copy(merged, existing)

	for _, transaction := range incoming {
		replaced := false
		for i := range merged {
			if merged[i].ID == transaction.ID {
				merged[i] = transaction
				replaced = true
				break
			}
		}
		if !replaced {
			// The collection is most-recent-first; a transaction we have
			// not seen yet goes to the front.
			merged = append([]upapi.Transaction{transaction}, merged...)
		}
	}
	return merged
}
