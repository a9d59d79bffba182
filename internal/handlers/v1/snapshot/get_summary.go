package snapshot

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// GetSummaryResponseBody is the derived summary plus refresh time.
type GetSummaryResponseBody struct {
	Summary     Summary `json:"summary" doc:"Derived totals"`
	RefreshedAt string  `json:"refreshedAt" doc:"Time of the last successful refresh"`
}

// GetSummaryOutput is the Huma output for the summary read.
type GetSummaryOutput struct {
	Body GetSummaryResponseBody
}

// GetSummaryHandler handles GET /v1/summary.
type GetSummaryHandler struct {
	Reader snapshotReader
}

// NewGetSummaryHandler creates a new GetSummaryHandler.
func NewGetSummaryHandler(reader snapshotReader) *GetSummaryHandler {
	return &GetSummaryHandler{Reader: reader}
}

// Register registers the summary endpoint with the Huma API.
func (h *GetSummaryHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-summary",
		Method:      http.MethodGet,
		Path:        "/v1/summary",
		Summary:     "Get the snapshot summary",
		Description: "Returns the total balance, account count and transaction count of the current snapshot.",
		Tags:        []string{"Snapshot"},
	}, h.handle)
}

func (h *GetSummaryHandler) handle(_ context.Context, _ *struct{}) (*GetSummaryOutput, error) {
	snap := h.Reader.Snapshot()
	if snap == nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "snapshot not ready")
	}

	return &GetSummaryOutput{
		Body: GetSummaryResponseBody{
			Summary:     toSummary(snap.Summary),
			RefreshedAt: formatRefreshedAt(snap.RefreshedAt),
		},
	}, nil
}
