package ingress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/up-bridge/internal/logging"
)

// eventTransactionDeleted cannot be resolved by re-fetching the deleted
// transaction, so it forces a full resync.
const eventTransactionDeleted = "TRANSACTION_DELETED"

// eventPing is Up's webhook ping delivery; nothing to refresh.
const eventPing = "PING"

// signatureHeader carries the hex HMAC-SHA256 of the raw request body,
// keyed with the webhook's shared secret.
const signatureHeader = "X-Up-Authenticity-Signature"

// refreshQueuer is the coordinator surface the ingress needs: non-blocking
// enqueues only, so the remote service is never kept waiting on a refresh.
type refreshQueuer interface {
	EnqueueFull() bool
	EnqueuePartial(transactionID string) bool
}

// ReceiveEventInput is the inbound webhook callback. RawBody is kept so the
// signature can be verified over the exact bytes Up signed.
type ReceiveEventInput struct {
	CallbackID string `path:"callbackID" doc:"Locally generated callback id the webhook was registered with"`
	Signature  string `header:"X-Up-Authenticity-Signature" doc:"Hex HMAC-SHA256 of the raw body"`
	RawBody    []byte
}

// ReceiveEventOutput acknowledges the delivery. Always 200; the refresh
// outcome is observed through the snapshot, not this response.
type ReceiveEventOutput struct{}

// eventEnvelope is the slice of Up's webhook event payload we act on.
type eventEnvelope struct {
	Data struct {
		Attributes struct {
			EventType   string `json:"eventType"`
			Transaction *struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"transaction"`
		} `json:"attributes"`
	} `json:"data"`
}

// Handler handles POST /v1/webhooks/up/{callbackID}.
type Handler struct {
	Queue      refreshQueuer
	CallbackID string
	Secret     string
}

func NewHandler(queue refreshQueuer, callbackID, secret string) *Handler {
	return &Handler{Queue: queue, CallbackID: callbackID, Secret: secret}
}

// Register registers the webhook ingress endpoint with the Huma API.
func (h *Handler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "receive-up-event",
		Method:        http.MethodPost,
		Path:          "/v1/webhooks/up/{callbackID}",
		Summary:       "Receive an Up webhook event",
		Description:   "Accepts Up push notifications and schedules the matching snapshot refresh asynchronously.",
		Tags:          []string{"Webhooks"},
		DefaultStatus: http.StatusOK,
	}, h.handle)
}

func (h *Handler) handle(ctx context.Context, input *ReceiveEventInput) (*ReceiveEventOutput, error) {
	logData := logging.GetLogData(ctx)

	if input.CallbackID != h.CallbackID {
		return nil, huma.NewError(http.StatusNotFound, "unknown callback id")
	}

	if h.Secret != "" && !verifySignature(input.RawBody, input.Signature, h.Secret) {
		return nil, huma.NewError(http.StatusUnauthorized, "invalid webhook signature")
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(input.RawBody, &envelope); err != nil {
		// Acknowledge anyway; there is nothing to retry on our side.
		if logData != nil {
			logData.AddData("malformedPayload", true)
		}
		return &ReceiveEventOutput{}, nil
	}

	eventType := envelope.Data.Attributes.EventType
	if logData != nil {
		logData.AddData("eventType", eventType)
	}

	switch {
	case eventType == eventPing:
		// Delivery check only.
	case eventType == eventTransactionDeleted:
		if !h.Queue.EnqueueFull() && logData != nil {
			logData.AddData("dropped", true)
		}
	case envelope.Data.Attributes.Transaction != nil && envelope.Data.Attributes.Transaction.Data.ID != "":
		transactionID := envelope.Data.Attributes.Transaction.Data.ID
		if logData != nil {
			logData.AddData("transactionID", transactionID)
		}
		if !h.Queue.EnqueuePartial(transactionID) && logData != nil {
			logData.AddData("dropped", true)
		}
	default:
		if logData != nil {
			logData.AddData("missingTransactionID", true)
		}
	}

	return &ReceiveEventOutput{}, nil
}

func verifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
