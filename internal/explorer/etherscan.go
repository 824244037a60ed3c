// Package explorer fetches account transaction history from an Etherscan-compatible API.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/baharkarakas/chainspend/internal/models"
)

var networks = map[string]string{
	"mainnet": "https://api.etherscan.io/api",
	"sepolia": "https://api-sepolia.etherscan.io/api",
	"goerli":  "https://api-goerli.etherscan.io/api",
}

var ErrUnknownNetwork = errors.New("unknown explorer network")

// APIError is a response the explorer answered with status "0".
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("explorer: %s: %s", e.Message, e.Result)
	}
	return "explorer: " + e.Message
}

type Client struct {
	baseURL string
	apiKey  string
	batch   int
	http    *http.Client
}

// New builds a client for network. A non-empty baseURL overrides the network table.
func New(apiKey, network, baseURL string, batch int) (*Client, error) {
	if baseURL == "" {
		if network == "" {
			network = "mainnet"
		}
		u, ok := networks[strings.ToLower(network)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
		}
		baseURL = u
	}
	if batch <= 0 {
		batch = 100
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		batch:   batch,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Fetch returns the most recent transactions of account, newest first.
func (c *Client) Fetch(ctx context.Context, account string) ([]models.RawRecord, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", account)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(c.batch))
	q.Set("sort", "desc")
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("explorer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	if out.Status == "0" {
		if strings.Contains(strings.ToLower(out.Message), "no transactions found") {
			return []models.RawRecord{}, nil
		}
		// result carries the reason as a string on errors (e.g. "Invalid API Key")
		var reason string
		_ = json.Unmarshal(out.Result, &reason)
		return nil, &APIError{Message: out.Message, Result: reason}
	}

	var records []models.RawRecord
	if err := json.Unmarshal(out.Result, &records); err != nil {
		return nil, fmt.Errorf("decode explorer result: %w", err)
	}
	return records, nil
}
