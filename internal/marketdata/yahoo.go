package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// YahooClient queries the Yahoo Finance v7 quote endpoint
type YahooClient struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewYahooClient creates a Yahoo Finance client rooted at baseURL
func NewYahooClient(baseURL string, timeout time.Duration, log zerolog.Logger) *YahooClient {
	return &YahooClient{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol    string `json:"symbol"`
	LongName  string `json:"longName"`
	ShortName string `json:"shortName"`
	Sector    string `json:"sector"`
}

// Lookup fetches the display name and sector of ticker
func (c *YahooClient) Lookup(ctx context.Context, ticker string) (*Quote, error) {
	params := url.Values{}
	params.Add("symbols", ticker)
	params.Add("fields", "symbol,longName,shortName,sector")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v7/finance/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var result yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if e := result.QuoteResponse.Error; e != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s: %s", e.Code, e.Description)}
	}

	for _, q := range result.QuoteResponse.Result {
		if !strings.EqualFold(q.Symbol, ticker) {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		if name == "" {
			break
		}

		quote := &Quote{Ticker: strings.ToUpper(ticker), Name: name}
		if q.Sector != "" {
			sector := q.Sector
			quote.Sector = &sector
		}
		c.log.Debug().Str("ticker", quote.Ticker).Str("name", name).Msg("Fetched quote")
		return quote, nil
	}

	return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
}
