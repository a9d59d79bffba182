package upapi

// The Up API speaks JSON:API: every resource arrives as
// {type, id, attributes, relationships} under a "data" key.

// Money is Up's money object. Value stays a string so a malformed balance
// can be skipped downstream instead of failing the decode.
type Money struct {
	CurrencyCode     string `json:"currencyCode"`
	Value            string `json:"value"`
	ValueInBaseUnits int64  `json:"valueInBaseUnits"`
}

// ResourceIdentifier is a bare {type, id} reference inside a relationship.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship wraps a nullable resource reference.
type Relationship struct {
	Data *ResourceIdentifier `json:"data"`
}

type AccountAttributes struct {
	DisplayName   string `json:"displayName"`
	AccountType   string `json:"accountType"`
	OwnershipType string `json:"ownershipType"`
	Balance       Money  `json:"balance"`
	CreatedAt     string `json:"createdAt"`
}

type Account struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

type TransactionAttributes struct {
	Status      string `json:"status"`
	RawText     string `json:"rawText"`
	Description string `json:"description"`
	Message     string `json:"message"`
	Amount      Money  `json:"amount"`
	CreatedAt   string `json:"createdAt"`
	SettledAt   string `json:"settledAt"`
}

type TransactionRelationships struct {
	Account         Relationship `json:"account"`
	TransferAccount Relationship `json:"transferAccount"`
	Category        Relationship `json:"category"`
}

type Transaction struct {
	Type          string                   `json:"type"`
	ID            string                   `json:"id"`
	Attributes    TransactionAttributes    `json:"attributes"`
	Relationships TransactionRelationships `json:"relationships"`
}

// AccountID returns the id of the owning account, empty when the
// relationship is absent.
func (t *Transaction) AccountID() string {
	if t.Relationships.Account.Data == nil {
		return ""
	}
	return t.Relationships.Account.Data.ID
}

// TransferAccountID returns the id of the transfer counterpart account,
// empty for non-transfer transactions.
func (t *Transaction) TransferAccountID() string {
	if t.Relationships.TransferAccount.Data == nil {
		return ""
	}
	return t.Relationships.TransferAccount.Data.ID
}

type CategoryAttributes struct {
	Name string `json:"name"`
}

type Category struct {
	Type       string             `json:"type"`
	ID         string             `json:"id"`
	Attributes CategoryAttributes `json:"attributes"`
}

// Tag has no attributes beyond its id.
type Tag struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type WebhookAttributes struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	SecretKey   string `json:"secretKey"`
	CreatedAt   string `json:"createdAt"`
}

type Webhook struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes WebhookAttributes `json:"attributes"`
}

type AccountsEnvelope struct {
	Data []Account `json:"data"`
}

type AccountEnvelope struct {
	Data Account `json:"data"`
}

type TransactionsEnvelope struct {
	Data []Transaction `json:"data"`
}

type TransactionEnvelope struct {
	Data Transaction `json:"data"`
}

type CategoriesEnvelope struct {
	Data []Category `json:"data"`
}

type TagsEnvelope struct {
	Data []Tag `json:"data"`
}

type WebhooksEnvelope struct {
	Data []Webhook `json:"data"`
}

type WebhookEnvelope struct {
	Data Webhook `json:"data"`
}

type webhookCreateRequest struct {
	Data webhookCreateData `json:"data"`
}

type webhookCreateData struct {
	Attributes webhookCreateAttributes `json:"attributes"`
}

type webhookCreateAttributes struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}
