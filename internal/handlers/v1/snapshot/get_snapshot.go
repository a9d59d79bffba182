package snapshot

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/up-bridge/internal/logging"
)

// GetSnapshotResponseBody is the full synchronized state.
type GetSnapshotResponseBody struct {
	Accounts     []Account     `json:"accounts" doc:"Synchronized accounts"`
	Transactions []Transaction `json:"transactions" doc:"Most recent transactions, newest first"`
	Categories   []Category    `json:"categories" doc:"Spending categories"`
	Tags         []Tag         `json:"tags" doc:"Transaction tags"`
	Summary      Summary       `json:"summary" doc:"Derived totals"`
	RefreshedAt  string        `json:"refreshedAt" doc:"Time of the last successful refresh"`
}

// GetSnapshotOutput is the Huma output for the snapshot read.
type GetSnapshotOutput struct {
	Body GetSnapshotResponseBody
}

// GetSnapshotHandler handles GET /v1/snapshot.
type GetSnapshotHandler struct {
	Reader snapshotReader
}

// NewGetSnapshotHandler creates a new GetSnapshotHandler.
func NewGetSnapshotHandler(reader snapshotReader) *GetSnapshotHandler {
	return &GetSnapshotHandler{Reader: reader}
}

// Register registers the snapshot endpoint with the Huma API.
func (h *GetSnapshotHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/v1/snapshot",
		Summary:     "Get the synchronized snapshot",
		Description: "Returns the latest consistent view of accounts, transactions, categories and tags.",
		Tags:        []string{"Snapshot"},
	}, h.handle)
}

func (h *GetSnapshotHandler) handle(ctx context.Context, _ *struct{}) (*GetSnapshotOutput, error) {
	logData := logging.GetLogData(ctx)

	snap := h.Reader.Snapshot()
	if snap == nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "snapshot not ready")
	}

	if logData != nil {
		logData.AddData("accountCount", snap.Summary.AccountCount)
		logData.AddData("transactionCount", snap.Summary.TransactionCount)
	}

	return &GetSnapshotOutput{
		Body: GetSnapshotResponseBody{
			Accounts:     toAccounts(snap.Accounts),
			Transactions: toTransactions(snap.Transactions),
			Categories:   toCategories(snap.Categories),
			Tags:         toTags(snap.Tags),
			Summary:      toSummary(snap.Summary),
			RefreshedAt:  formatRefreshedAt(snap.RefreshedAt),
		},
	}, nil
}
