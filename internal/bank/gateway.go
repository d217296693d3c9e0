package bank

import (
	"errors"
	"fmt"
	"time"
)

// ErrCredentialInvalid is returned when the aggregator reports that the stored
// access credential requires the user to re-authenticate. Callers transition
// the owning item to login_required instead of retrying.
var ErrCredentialInvalid = errors.New("bank credential invalid, re-authentication required")

// GatewayError is a non-credential provider failure carrying the provider's
// error code, which sync persists on the item for the next attempt's context.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// ErrorCode extracts the provider error code when err carries one.
func ErrorCode(err error) string {
	var gErr *GatewayError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return "SYNC_FAILED"
}

// TransactionRecord is one transaction as delivered by the aggregator.
// Amount follows the aggregator convention: positive = debit (money out).
type TransactionRecord struct {
	ExternalID        string
	ExternalAccountID string
	Amount            int64 // minor units, positive = debit
	MerchantName      string
	Description       string
	Date              time.Time
	Pending           bool
}

// DeltaPage is one page of the incremental transaction stream.
type DeltaPage struct {
	Added      []TransactionRecord
	Modified   []TransactionRecord
	Removed    []string // external transaction ids
	NextCursor string
	HasMore    bool
}

type AccountRecord struct {
	ExternalAccountID string
	Name              string
	Type              string
	Subtype           string
	CurrentBalance    int64 // minor units
	AvailableBalance  int64 // minor units
}

type BalanceRecord struct {
	ExternalAccountID string
	CurrentBalance    int64
	AvailableBalance  int64
}

// Gateway abstracts the bank aggregator. The link/consent UI flow happens
// entirely on the provider side; this interface only covers the server calls.
type Gateway interface {
	CreateLinkToken(userID, existingAccessToken string) (string, error)
	ExchangePublicToken(publicToken string) (accessToken, externalItemID string, err error)
	FetchAccounts(accessToken string) ([]AccountRecord, error)
	SyncDelta(accessToken, cursor string) (*DeltaPage, error)
	FetchBalances(accessToken string) ([]BalanceRecord, error)
}

// CredentialStore keeps durable per-item access credentials. Implementations
// must never surface tokens through item reads.
type CredentialStore interface {
	Save(itemID, accessToken string) error
	Get(itemID string) (string, error)
}
