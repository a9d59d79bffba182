package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/carson-networks/up-bridge/internal/logging"
	"github.com/carson-networks/up-bridge/internal/upapi"
)

type mockUpClient struct {
	mock.Mock
}

func (m *mockUpClient) GetAccounts(ctx context.Context) (*upapi.AccountsEnvelope, error) {
	args := m.Called(ctx)
	envelope, _ := args.Get(0).(*upapi.AccountsEnvelope)
	return envelope, args.Error(1)
}

func (m *mockUpClient) GetAccount(ctx context.Context, accountID string) (*upapi.AccountEnvelope, error) {
	args := m.Called(ctx, accountID)
	envelope, _ := args.Get(0).(*upapi.AccountEnvelope)
	return envelope, args.Error(1)
}

func (m *mockUpClient) GetTransactions(ctx context.Context, pageSize int) (*upapi.TransactionsEnvelope, error) {
	args := m.Called(ctx, pageSize)
	envelope, _ := args.Get(0).(*upapi.TransactionsEnvelope)
	return envelope, args.Error(1)
}

func (m *mockUpClient) GetTransaction(ctx context.Context, transactionID string) (*upapi.TransactionEnvelope, error) {
	args := m.Called(ctx, transactionID)
	envelope, _ := args.Get(0).(*upapi.TransactionEnvelope)
	return envelope, args.Error(1)
}

func (m *mockUpClient) GetCategories(ctx context.Context) (*upapi.CategoriesEnvelope, error) {
	args := m.Called(ctx)
	envelope, _ := args.Get(0).(*upapi.CategoriesEnvelope)
	return envelope, args.Error(1)
}

func (m *mockUpClient) GetTags(ctx context.Context) (*upapi.TagsEnvelope, error) {
	args := m.Called(ctx)
	envelope, _ := args.Get(0).(*upapi.TagsEnvelope)
	return envelope, args.Error(1)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *mockUpClient) {
	t.Helper()
	client := &mockUpClient{}
	coord := NewCoordinator(client, logging.SetupLogging("error"), time.Hour)
	return coord, client
}

func expectFullRefresh(client *mockUpClient, accounts []upapi.Account, transactions []upapi.Transaction) {
	client.On("GetAccounts", mock.Anything).Return(&upapi.AccountsEnvelope{Data: accounts}, nil).Once()
	client.On("GetTransactions", mock.Anything, upapi.DefaultPageSize).Return(&upapi.TransactionsEnvelope{Data: transactions}, nil).Once()
	client.On("GetCategories", mock.Anything).Return(&upapi.CategoriesEnvelope{Data: []upapi.Category{{ID: "good-life"}}}, nil).Once()
	client.On("GetTags", mock.Anything).Return(&upapi.TagsEnvelope{Data: []upapi.Tag{{ID: "holiday"}}}, nil).Once()
}

// -- interval tests --

func TestNewCoordinator_NonPositiveIntervalFallsBack(t *testing.T) {
	coord := NewCoordinator(&mockUpClient{}, logging.SetupLogging("error"), 0)
	assert.Equal(t, DefaultRefreshInterval, coord.interval)
}

func TestNewCoordinator_SubMinuteIntervalFallsBack(t *testing.T) {
	coord := NewCoordinator(&mockUpClient{}, logging.SetupLogging("error"), 30*time.Second)
	assert.Equal(t, DefaultRefreshInterval, coord.interval)
}

func TestNewCoordinator_ValidIntervalKept(t *testing.T) {
	coord := NewCoordinator(&mockUpClient{}, logging.SetupLogging("error"), 5*time.Minute)
	assert.Equal(t, 5*time.Minute, coord.interval)
}

// -- full refresh tests --

func TestProcess_FullRefreshPublishesSnapshot(t *testing.T) {
	coord, client := newTestCoordinator(t)

	accounts := []upapi.Account{makeAccount("A1", "10.00"), makeAccount("A2", "bad")}
	transactions := []upapi.Transaction{makeTransaction("T1", "A1")}
	expectFullRefresh(client, accounts, transactions)

	assert.False(t, coord.Ready())
	err := coord.process(refreshRequest{})
	assert.NoError(t, err)
	assert.True(t, coord.Ready())

	snap := coord.Snapshot()
	assert.Equal(t, 2, snap.Summary.AccountCount)
	assert.Equal(t, 1, snap.Summary.TransactionCount)
	assert.Equal(t, "10.00", snap.Summary.TotalBalance.String())
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Tags, 1)
	assert.False(t, snap.RefreshedAt.IsZero())
}

func TestProcess_FullRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	coord, client := newTestCoordinator(t)

	expectFullRefresh(client, []upapi.Account{makeAccount("A1", "10.00")}, nil)
	assert.NoError(t, coord.process(refreshRequest{}))
	previous := coord.Snapshot()

	client.On("GetAccounts", mock.Anything).Return(&upapi.AccountsEnvelope{}, nil)
	client.On("GetTransactions", mock.Anything, upapi.DefaultPageSize).Return(&upapi.TransactionsEnvelope{}, nil)
	client.On("GetCategories", mock.Anything).Return(&upapi.CategoriesEnvelope{}, nil)
	client.On("GetTags", mock.Anything).Return(nil, errors.New("boom"))

	err := coord.process(refreshRequest{})
	assert.Error(t, err)
	assert.Same(t, previous, coord.Snapshot())
}

func TestProcess_UnauthorizedFetchReportsFailure(t *testing.T) {
	coord, client := newTestCoordinator(t)

	client.On("GetAccounts", mock.Anything).Return(nil, upapi.ErrUnauthorized)
	client.On("GetTransactions", mock.Anything, upapi.DefaultPageSize).Return(&upapi.TransactionsEnvelope{}, nil).Maybe()
	client.On("GetCategories", mock.Anything).Return(&upapi.CategoriesEnvelope{}, nil).Maybe()
	client.On("GetTags", mock.Anything).Return(&upapi.TagsEnvelope{}, nil).Maybe()

	err := coord.process(refreshRequest{})
	assert.ErrorIs(t, err, upapi.ErrUnauthorized)
	assert.Nil(t, coord.Snapshot())
}

// -- partial refresh tests --

func TestProcess_PartialRefreshFetchesTransactionAndBothAccounts(t *testing.T) {
	coord, client := newTestCoordinator(t)

	expectFullRefresh(client, []upapi.Account{makeAccount("A1", "10.00"), makeAccount("A2", "5.00")},
		[]upapi.Transaction{makeTransaction("T1", "A1")})
	assert.NoError(t, coord.process(refreshRequest{}))

	transfer := makeTransaction("T1", "A1")
	transfer.Relationships.TransferAccount = upapi.Relationship{
		Data: &upapi.ResourceIdentifier{Type: "accounts", ID: "A2"},
	}

	client.On("GetTransaction", mock.Anything, "T1").
		Return(&upapi.TransactionEnvelope{Data: transfer}, nil).Once()
	client.On("GetAccount", mock.Anything, "A1").
		Return(&upapi.AccountEnvelope{Data: makeAccount("A1", "8.00")}, nil).Once()
	client.On("GetAccount", mock.Anything, "A2").
		Return(&upapi.AccountEnvelope{Data: makeAccount("A2", "7.00")}, nil).Once()

	err := coord.process(refreshRequest{partial: true, transactionID: "T1"})
	assert.NoError(t, err)

	client.AssertNumberOfCalls(t, "GetTransaction", 1)
	client.AssertNumberOfCalls(t, "GetAccount", 2)

	snap := coord.Snapshot()
	assert.Len(t, snap.Transactions, 1)
	assert.Equal(t, "T1", snap.Transactions[0].ID)
	assert.Equal(t, "8.00", snap.Accounts[0].Attributes.Balance.Value)
	assert.Equal(t, "7.00", snap.Accounts[1].Attributes.Balance.Value)
	assert.Equal(t, "15.00", snap.Summary.TotalBalance.String())
	assert.Len(t, snap.Categories, 1)
}

func TestProcess_PartialRefreshSingleAccount(t *testing.T) {
	coord, client := newTestCoordinator(t)

	client.On("GetTransaction", mock.Anything, "T9").
		Return(&upapi.TransactionEnvelope{Data: makeTransaction("T9", "A1")}, nil).Once()
	client.On("GetAccount", mock.Anything, "A1").
		Return(&upapi.AccountEnvelope{Data: makeAccount("A1", "2.00")}, nil).Once()

	err := coord.process(refreshRequest{partial: true, transactionID: "T9"})
	assert.NoError(t, err)
	client.AssertNumberOfCalls(t, "GetAccount", 1)
}

func TestProcess_PartialRefreshTransactionFetchFailure(t *testing.T) {
	coord, client := newTestCoordinator(t)

	expectFullRefresh(client, []upapi.Account{makeAccount("A1", "10.00")}, nil)
	assert.NoError(t, coord.process(refreshRequest{}))
	previous := coord.Snapshot()

	client.On("GetTransaction", mock.Anything, "T1").Return(nil, errors.New("boom"))

	err := coord.process(refreshRequest{partial: true, transactionID: "T1"})
	assert.Error(t, err)
	assert.Same(t, previous, coord.Snapshot())
}

func TestProcess_PartialRefreshMissingAccountRelationship(t *testing.T) {
	coord, client := newTestCoordinator(t)

	orphan := upapi.Transaction{ID: "T1"}
	client.On("GetTransaction", mock.Anything, "T1").
		Return(&upapi.TransactionEnvelope{Data: orphan}, nil)

	err := coord.process(refreshRequest{partial: true, transactionID: "T1"})
	assert.Error(t, err)
}

// -- worker lifecycle tests --

func TestRefreshNow_RunsThroughWorker(t *testing.T) {
	coord, client := newTestCoordinator(t)
	expectFullRefresh(client, []upapi.Account{makeAccount("A1", "1.00")}, nil)

	coord.Start()
	defer coord.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, coord.RefreshNow(ctx))
	assert.True(t, coord.Ready())
}

func TestRefreshNow_FirstRefreshFailure(t *testing.T) {
	coord, client := newTestCoordinator(t)

	fetchErr := errors.New("remote down")
	client.On("GetAccounts", mock.Anything).Return(nil, fetchErr)
	client.On("GetTransactions", mock.Anything, upapi.DefaultPageSize).Return(nil, fetchErr).Maybe()
	client.On("GetCategories", mock.Anything).Return(nil, fetchErr).Maybe()
	client.On("GetTags", mock.Anything).Return(nil, fetchErr).Maybe()

	coord.Start()
	defer coord.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Error(t, coord.RefreshNow(ctx))
	assert.False(t, coord.Ready())
}

func TestEnqueue_BoundedQueue(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	// Worker not started, so the queue only drains on capacity.
	for i := 0; i < queueCapacity; i++ {
		assert.True(t, coord.EnqueuePartial("T1"))
	}
	assert.False(t, coord.EnqueueFull())
	assert.False(t, coord.EnqueuePartial("T2"))
}
