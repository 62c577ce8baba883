// Package binance resolves historical crypto valuations from the
// Binance klines API: the hourly close price of an asset in USD, using
// USDT, BTC, ETH and BNB quoted pairs with one-hop bridge triangulation.
package binance

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kmazur/pit38"
	"github.com/kmazur/pit38/date"
	"github.com/shopspring/decimal"
)

// BaseURL is the public klines endpoint.
const BaseURL = "https://api.binance.com/api/v3/klines"

// Pair candidates in fixed priority order. The first is the pivot quote;
// the rest are bridge assets, largest cap first. Bridges themselves are
// always priced through their USDT pair only, which bounds the
// triangulation to one hop and makes termination structural.
var quotes = []string{"USDT", "BTC", "ETH", "BNB"}

type cacheKey struct {
	symbol string
	hour   date.Hour
}

// Client looks up hourly close prices with an in-memory per-run cache.
// Not safe for concurrent use; the pipeline is strictly sequential.
type Client struct {
	base     string
	http     *http.Client
	rules    *pit38.Rules
	cache    map[cacheKey]decimal.Decimal
	requests int

	pace    time.Duration
	backoff time.Duration
	sleep   func(time.Duration)
}

// New returns a production client against the public Binance API.
func New(rules *pit38.Rules) *Client {
	return NewClient(BaseURL, &http.Client{Timeout: 8 * time.Second}, rules)
}

// NewClient returns a client against the given klines endpoint.
func NewClient(base string, hc *http.Client, rules *pit38.Rules) *Client {
	return &Client{
		base:    base,
		http:    hc,
		rules:   rules,
		cache:   make(map[cacheKey]decimal.Decimal),
		pace:    50 * time.Millisecond,
		backoff: 5 * time.Second,
		sleep:   time.Sleep,
	}
}

// Requests returns the number of klines requests issued so far.
func (c *Client) Requests() int { return c.requests }

// Price returns the asset's close price in USD for the hourly candle
// containing the given instant. ok=false means the asset cannot be
// priced automatically (no tradable pair, or a fiat symbol that must be
// valued through the NBP rate instead); it is a terminal state the
// caller surfaces as a manual-review item, not an error.
func (c *Client) Price(symbol string, at time.Time) (price decimal.Decimal, ok bool) {
	symbol = strings.ToUpper(symbol)
	if c.rules.IsStablecoin(symbol) {
		return decimal.NewFromInt(1), true
	}
	if c.rules.IsFiat(symbol) {
		return decimal.Decimal{}, false
	}
	return c.resolve(symbol, date.HourOf(at), true)
}

// resolve walks the candidate pairs. With bridged=false only the direct
// pivot pair is tried, which is how bridge assets themselves are priced.
func (c *Client) resolve(symbol string, hour date.Hour, bridged bool) (decimal.Decimal, bool) {
	key := cacheKey{symbol, hour}
	if price, ok := c.cache[key]; ok {
		return price, true
	}

	candidates := quotes
	if !bridged {
		candidates = quotes[:1]
	}
	for _, quote := range candidates {
		close, ok := c.hourlyClose(symbol+quote, hour)
		if !ok {
			continue
		}
		if quote != "USDT" {
			bridge, ok := c.resolve(quote, hour, false)
			if !ok {
				continue
			}
			close = close.Mul(bridge)
		}
		c.cache[key] = close
		return close, true
	}
	return decimal.Decimal{}, false
}

// hourlyClose fetches the close of the 1h candle starting at hour for
// one trading pair. Any failure means "try the next candidate".
func (c *Client) hourlyClose(pair string, hour date.Hour) (decimal.Decimal, bool) {
	params := url.Values{}
	params.Set("symbol", pair)
	params.Set("interval", "1h")
	params.Set("startTime", fmt.Sprint(hour.UnixMilli()))
	params.Set("limit", "1")

	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := c.get(c.base + "?" + params.Encode())
		if err != nil {
			log.Printf("binance: %s at %s: %v", pair, hour, err)
			return decimal.Decimal{}, false
		}
		if status == http.StatusTooManyRequests {
			log.Printf("binance: rate limited, backing off %s", c.backoff)
			c.sleep(c.backoff)
			continue
		}
		if status != http.StatusOK {
			// Unknown pair answers 400; either way this candidate is out.
			return decimal.Decimal{}, false
		}
		return parseClose(body)
	}
	return decimal.Decimal{}, false
}

func (c *Client) get(addr string) (int, []byte, error) {
	resp, err := c.http.Get(addr)
	c.requests++
	c.sleep(c.pace)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// parseClose extracts the close price (field 4) of the first kline.
// Klines are arrays of mixed numbers and strings; prices are strings.
func parseClose(body []byte) (decimal.Decimal, bool) {
	var klines [][]any
	if err := json.Unmarshal(body, &klines); err != nil || len(klines) == 0 {
		return decimal.Decimal{}, false
	}
	if len(klines[0]) < 5 {
		return decimal.Decimal{}, false
	}
	s, ok := klines[0][4].(string)
	if !ok {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}
