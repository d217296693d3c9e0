package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

// PlaidClient implements Gateway against the Plaid JSON API.
type PlaidClient struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
}

func NewPlaidClient(clientID, secret, baseURL string) *PlaidClient {
	if baseURL == "" {
		baseURL = "https://sandbox.plaid.com"
	}
	return &PlaidClient{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type plaidError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// post sends one JSON request with the client credentials merged into the
// body and decodes the response into out. Credential errors map to
// ErrCredentialInvalid so callers can mark the item login_required.
func (c *PlaidClient) post(path string, body map[string]interface{}, out interface{}) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("plaid request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var pErr plaidError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&pErr); decodeErr == nil {
			if pErr.ErrorCode == "ITEM_LOGIN_REQUIRED" || pErr.ErrorCode == "INVALID_ACCESS_TOKEN" {
				return fmt.Errorf("%s: %w", pErr.ErrorCode, ErrCredentialInvalid)
			}
			return &GatewayError{Code: pErr.ErrorCode, Message: pErr.ErrorMessage}
		}
		return fmt.Errorf("plaid request %s failed: %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

func (c *PlaidClient) CreateLinkToken(userID, existingAccessToken string) (string, error) {
	body := map[string]interface{}{
		"client_name":   "BudgetSync",
		"language":      "en",
		"country_codes": []string{"US"},
		"user":          map[string]string{"client_user_id": userID},
		"products":      []string{"transactions"},
	}
	if existingAccessToken != "" {
		// Re-link mode: the token opens update flow for the existing item.
		body["access_token"] = existingAccessToken
		delete(body, "products")
	}

	var result struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post("/link/token/create", body, &result); err != nil {
		return "", err
	}
	return result.LinkToken, nil
}

func (c *PlaidClient) ExchangePublicToken(publicToken string) (string, string, error) {
	var result struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	err := c.post("/item/public_token/exchange", map[string]interface{}{
		"public_token": publicToken,
	}, &result)
	if err != nil {
		return "", "", err
	}
	return result.AccessToken, result.ItemID, nil
}

type plaidAccount struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Balances  struct {
		Current   float64 `json:"current"`
		Available float64 `json:"available"`
	} `json:"balances"`
}

func (c *PlaidClient) FetchAccounts(accessToken string) ([]AccountRecord, error) {
	var result struct {
		Accounts []plaidAccount `json:"accounts"`
	}
	err := c.post("/accounts/get", map[string]interface{}{
		"access_token": accessToken,
	}, &result)
	if err != nil {
		return nil, err
	}

	accounts := make([]AccountRecord, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		accounts = append(accounts, AccountRecord{
			ExternalAccountID: a.AccountID,
			Name:              a.Name,
			Type:              a.Type,
			Subtype:           a.Subtype,
			CurrentBalance:    dollarsToCents(a.Balances.Current),
			AvailableBalance:  dollarsToCents(a.Balances.Available),
		})
	}
	return accounts, nil
}

func (c *PlaidClient) SyncDelta(accessToken, cursor string) (*DeltaPage, error) {
	body := map[string]interface{}{
		"access_token": accessToken,
		"count":        100,
	}
	if cursor != "" {
		body["cursor"] = cursor
	}

	var result struct {
		Added []struct {
			TransactionID string  `json:"transaction_id"`
			AccountID     string  `json:"account_id"`
			Amount        float64 `json:"amount"`
			MerchantName  string  `json:"merchant_name"`
			Name          string  `json:"name"`
			Date          string  `json:"date"`
			Pending       bool    `json:"pending"`
		} `json:"added"`
		Modified []struct {
			TransactionID string  `json:"transaction_id"`
			AccountID     string  `json:"account_id"`
			Amount        float64 `json:"amount"`
			MerchantName  string  `json:"merchant_name"`
			Name          string  `json:"name"`
			Date          string  `json:"date"`
			Pending       bool    `json:"pending"`
		} `json:"modified"`
		Removed []struct {
			TransactionID string `json:"transaction_id"`
		} `json:"removed"`
		NextCursor string `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	if err := c.post("/transactions/sync", body, &result); err != nil {
		return nil, err
	}

	page := &DeltaPage{
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	}
	for _, t := range result.Added {
		date, err := parsePlaidDate(t.Date)
		if err != nil {
			log.Printf("Skipping transaction %s with unparsable date %q: %v", t.TransactionID, t.Date, err)
			continue
		}
		page.Added = append(page.Added, TransactionRecord{
			ExternalID:        t.TransactionID,
			ExternalAccountID: t.AccountID,
			Amount:            dollarsToCents(t.Amount),
			MerchantName:      t.MerchantName,
			Description:       t.Name,
			Date:              date,
			Pending:           t.Pending,
		})
	}
	for _, t := range result.Modified {
		date, err := parsePlaidDate(t.Date)
		if err != nil {
			log.Printf("Skipping transaction %s with unparsable date %q: %v", t.TransactionID, t.Date, err)
			continue
		}
		page.Modified = append(page.Modified, TransactionRecord{
			ExternalID:        t.TransactionID,
			ExternalAccountID: t.AccountID,
			Amount:            dollarsToCents(t.Amount),
			MerchantName:      t.MerchantName,
			Description:       t.Name,
			Date:              date,
			Pending:           t.Pending,
		})
	}
	for _, t := range result.Removed {
		page.Removed = append(page.Removed, t.TransactionID)
	}
	return page, nil
}

func (c *PlaidClient) FetchBalances(accessToken string) ([]BalanceRecord, error) {
	var result struct {
		Accounts []plaidAccount `json:"accounts"`
	}
	err := c.post("/accounts/balance/get", map[string]interface{}{
		"access_token": accessToken,
	}, &result)
	if err != nil {
		return nil, err
	}

	balances := make([]BalanceRecord, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		balances = append(balances, BalanceRecord{
			ExternalAccountID: a.AccountID,
			CurrentBalance:    dollarsToCents(a.Balances.Current),
			AvailableBalance:  dollarsToCents(a.Balances.Available),
		})
	}
	return balances, nil
}

func dollarsToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func parsePlaidDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
