package snapshot

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/up-bridge/internal/logging"
)

// ListTransactionsInput is the Huma input for listing transactions.
type ListTransactionsInput struct {
	AccountID string `query:"accountId" doc:"Only return transactions owned by this account"`
}

// ListTransactionsResponseBody is the response body for listing transactions.
type ListTransactionsResponseBody struct {
	Transactions []Transaction `json:"transactions" doc:"Transactions, newest first"`
	RefreshedAt  string        `json:"refreshedAt" doc:"Time of the last successful refresh"`
}

// ListTransactionsOutput is the Huma output for listing transactions.
type ListTransactionsOutput struct {
	Body ListTransactionsResponseBody
}

// ListTransactionsHandler handles GET /v1/transactions.
type ListTransactionsHandler struct {
	Reader snapshotReader
}

// NewListTransactionsHandler creates a new ListTransactionsHandler.
func NewListTransactionsHandler(reader snapshotReader) *ListTransactionsHandler {
	return &ListTransactionsHandler{Reader: reader}
}

// Register registers the list transactions endpoint with the Huma API.
func (h *ListTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-transactions",
		Method:      http.MethodGet,
		Path:        "/v1/transactions",
		Summary:     "List transactions",
		Description: "Returns the most recent transactions from the current snapshot, optionally filtered by account.",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func (h *ListTransactionsHandler) handle(ctx context.Context, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	logData := logging.GetLogData(ctx)

	snap := h.Reader.Snapshot()
	if snap == nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "snapshot not ready")
	}

	transactions := toTransactions(snap.Transactions)
	if input.AccountID != "" {
		filtered := transactions[:0]
		for _, transaction := range transactions {
			if transaction.AccountID == input.AccountID {
				filtered = append(filtered, transaction)
			}
		}
		transactions = filtered
	}

	if logData != nil {
		logData.AddData("transactionCount", len(transactions))
	}

	return &ListTransactionsOutput{
		Body: ListTransactionsResponseBody{
			Transactions: transactions,
			RefreshedAt:  formatRefreshedAt(snap.RefreshedAt),
		},
	}, nil
}
