package snapshot

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/up-bridge/internal/logging"
)

// ListAccountsResponseBody is the response body for listing accounts.
type ListAccountsResponseBody struct {
	Accounts    []Account `json:"accounts" doc:"Synchronized accounts"`
	RefreshedAt string    `json:"refreshedAt" doc:"Time of the last successful refresh"`
}

// ListAccountsOutput is the Huma output for listing accounts.
type ListAccountsOutput struct {
	Body ListAccountsResponseBody
}

// ListAccountsHandler handles GET /v1/accounts.
type ListAccountsHandler struct {
	Reader snapshotReader
}

// NewListAccountsHandler creates a new ListAccountsHandler.
func NewListAccountsHandler(reader snapshotReader) *ListAccountsHandler {
	return &ListAccountsHandler{Reader: reader}
}

// Register registers the list accounts endpoint with the Huma API.
func (h *ListAccountsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-accounts",
		Method:      http.MethodGet,
		Path:        "/v1/accounts",
		Summary:     "List accounts",
		Description: "Returns the accounts from the current snapshot.",
		Tags:        []string{"Accounts"},
	}, h.handle)
}

func (h *ListAccountsHandler) handle(ctx context.Context, _ *struct{}) (*ListAccountsOutput, error) {
	logData := logging.GetLogData(ctx)

	snap := h.Reader.Snapshot()
	if snap == nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "snapshot not ready")
	}

	if logData != nil {
		logData.AddData("accountCount", len(snap.Accounts))
	}

	return &ListAccountsOutput{
		Body: ListAccountsResponseBody{
			Accounts:    toAccounts(snap.Accounts),
			RefreshedAt: formatRefreshedAt(snap.RefreshedAt),
		},
	}, nil
}
