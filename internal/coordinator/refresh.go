package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carson-networks/up-bridge/internal/upapi"
)

// fetchFull issues the four collection fetches concurrently. Any failure
// fails the whole batch; the caller keeps the previous snapshot.
func (c *Coordinator) fetchFull(ctx context.Context) (*Snapshot, error) {
	var (
		accounts     *upapi.AccountsEnvelope
		transactions *upapi.TransactionsEnvelope
		categories   *upapi.CategoriesEnvelope
		tags         *upapi.TagsEnvelope
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		accounts, err = c.client.GetAccounts(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		transactions, err = c.client.GetTransactions(groupCtx, upapi.DefaultPageSize)
		return err
	})
	group.Go(func() error {
		var err error
		categories, err = c.client.GetCategories(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		tags, err = c.client.GetTags(groupCtx)
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("full refresh: %w", err)
	}

	snapshot := &Snapshot{
		Accounts:     accounts.Data,
		Transactions: transactions.Data,
		Categories:   categories.Data,
		Tags:         tags.Data,
	}
	snapshot.Summary = newSummary(snapshot.Accounts, snapshot.Transactions, c.logger)
	return snapshot, nil
}

// fetchPartial fetches one transaction plus the account(s) it references
// and returns the fragment to merge: the refreshed transaction and the one
// or two refreshed accounts, nothing else.
func (c *Coordinator) fetchPartial(ctx context.Context, transactionID string) (*Snapshot, error) {
	envelope, err := c.client.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("partial refresh of transaction %s: %w", transactionID, err)
	}
	transaction := envelope.Data

	accountID := transaction.AccountID()
	if accountID == "" {
		return nil, fmt.Errorf("partial refresh: transaction %s has no account relationship", transactionID)
	}

	accountIDs := []string{accountID}
	if transferID := transaction.TransferAccountID(); transferID != "" {
		accountIDs = append(accountIDs, transferID)
	}

	accounts := make([]upapi.Account, 0, len(accountIDs))
	for _, id := range accountIDs {
		accountEnvelope, err := c.client.GetAccount(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("partial refresh of account %s: %w", id, err)
		}
		accounts = append(accounts, accountEnvelope.Data)
	}

	return &Snapshot{
		Accounts:     accounts,
		Transactions: []upapi.Transaction{transaction},
	}, nil
}
