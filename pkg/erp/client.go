package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PageSize is the page size used when fetching every page of a list.
const PageSize = 100

// ClientConfig configures the API client.
type ClientConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	AccessToken  string
	Timeout      time.Duration // Default: 30 seconds
}

// Client is an ERP accounting API client shared by every company partition.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new API client. A configured access token is sent
// as is; otherwise client credentials, when set, obtain and refresh one
// from {APIURL}/oauth/token.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})

	var httpClient *http.Client
	switch {
	case config.AccessToken != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: config.AccessToken,
			TokenType:   "Bearer",
		}))
	case config.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/oauth/token", config.APIURL),
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		httpClient = cc.Client(ctx)
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    config.APIURL,
	}
}

// get issues an authenticated GET for one company and decodes the body into out.
func (c *Client) get(ctx context.Context, path string, companyID int64, params url.Values, out any) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("company_id", strconv.FormatInt(companyID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode()), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListDeals lists one page of a company's deals.
func (c *Client) ListDeals(ctx context.Context, companyID int64, params url.Values) ([]Deal, error) {
	var dealsResp DealsResponse
	if err := c.get(ctx, "/api/1/deals", companyID, params, &dealsResp); err != nil {
		return nil, err
	}
	return dealsResp.Deals, nil
}

// FetchAllDeals fetches every page of a company's deals matching params.
func (c *Client) FetchAllDeals(ctx context.Context, companyID int64, params url.Values) ([]Deal, error) {
	var allDeals []Deal
	offset := 0

	for {
		page := url.Values{}
		for k, v := range params {
			page[k] = v
		}
		page.Set("limit", strconv.Itoa(PageSize))
		page.Set("offset", strconv.Itoa(offset))

		deals, err := c.ListDeals(ctx, companyID, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list deals (offset=%d): %w", offset, err)
		}

		if len(deals) == 0 {
			break
		}

		allDeals = append(allDeals, deals...)

		if len(deals) < PageSize {
			break
		}

		offset += PageSize
	}

	return allDeals, nil
}

// ListPartners lists every partner of a company.
func (c *Client) ListPartners(ctx context.Context, companyID int64) ([]Partner, error) {
	var partners []Partner
	offset := 0

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(PageSize))
		params.Set("offset", strconv.Itoa(offset))

		var resp PartnersResponse
		if err := c.get(ctx, "/api/1/partners", companyID, params, &resp); err != nil {
			return nil, fmt.Errorf("failed to list partners (offset=%d): %w", offset, err)
		}

		partners = append(partners, resp.Partners...)

		if len(resp.Partners) < PageSize {
			break
		}

		offset += PageSize
	}

	return partners, nil
}

// parseError parses an error response from the API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ERP API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("ERP API error (status %d): %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Errorf("ERP API error: %s - %s", errResp.Error, errResp.ErrorDescription)
	}

	return fmt.Errorf("ERP API error: %s", errResp.Error)
}
