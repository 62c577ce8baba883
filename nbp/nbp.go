// Package nbp resolves official daily fiat exchange rates from the
// National Bank of Poland Table A API.
//
// The valuation rule of art. 22 ust. 1 updof requires the last rate
// published strictly before the transaction date, so a lookup starts at
// the preceding day and walks backward over weekends and holidays, up
// to 14 days.
package nbp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/kmazur/pit38/date"
	"github.com/shopspring/decimal"
)

// BaseURL is the NBP Table A endpoint (mid rates).
const BaseURL = "https://api.nbp.pl/api/exchangerates/rates/a"

// maxLookback bounds the backward walk. Two weeks covers every gap in
// the NBP publication calendar.
const maxLookback = 14

// RateUnavailableError reports that no rate was published within the
// fallback window. It fails the valuation of one transaction, not the run.
type RateUnavailableError struct {
	Currency string
	Day      date.Date
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("no NBP rate for %q near %s (checked %d days back); verify the currency is listed in NBP table A",
		e.Currency, e.Day, maxLookback)
}

type cacheKey struct {
	currency string
	day      date.Date
}

// Client looks up NBP mid rates with an in-memory per-run cache. It is
// not safe for concurrent use; the pipeline is strictly sequential.
type Client struct {
	base     string
	http     *http.Client
	cache    map[cacheKey]decimal.Decimal
	misses   map[cacheKey]bool // days known unpublished (weekends, holidays)
	requests int

	pace    time.Duration // fixed delay after every request
	backoff time.Duration // longer delay after a rate-limit response
	sleep   func(time.Duration)
}

// New returns a production client against the public NBP API.
func New() *Client {
	return NewClient(BaseURL, &http.Client{Timeout: 8 * time.Second})
}

// NewClient returns a client against the given endpoint. Tests point it
// at a local server.
func NewClient(base string, hc *http.Client) *Client {
	return &Client{
		base:    strings.TrimSuffix(base, "/"),
		http:    hc,
		cache:   make(map[cacheKey]decimal.Decimal),
		misses:  make(map[cacheKey]bool),
		pace:    50 * time.Millisecond,
		backoff: 5 * time.Second,
		sleep:   time.Sleep,
	}
}

// Requests returns the number of HTTP requests issued so far.
func (c *Client) Requests() int { return c.requests }

// Rate returns the PLN mid rate for one unit of currency, as of the
// given transaction date: the last rate published strictly before it.
// PLN itself trivially resolves to 1 without a lookup.
func (c *Client) Rate(currency string, asOf date.Date) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "PLN" {
		return decimal.NewFromInt(1), nil
	}

	prev := asOf.Add(-1) // day preceding, art. 22 ust. 1 updof
	for back := 0; back < maxLookback; back++ {
		day := prev.Add(-back)
		key := cacheKey{currency, day}
		if rate, ok := c.cache[key]; ok {
			return rate, nil
		}
		if c.misses[key] {
			continue
		}
		rate, found, err := c.fetchDay(currency, day)
		if err != nil {
			// Transient failure already retried once; move the walk on.
			log.Printf("nbp: %s %s: %v", currency, day, err)
			continue
		}
		if !found {
			// Not published that day (weekend or holiday). Remembered so
			// an identical lookup never re-walks it over the network.
			c.misses[key] = true
			continue
		}
		c.cache[key] = rate
		return rate, nil
	}
	return decimal.Decimal{}, &RateUnavailableError{Currency: currency, Day: asOf}
}

// fetchDay queries one publication day. found=false means the API
// answered but has no rate for that day. A rate-limit response backs
// off once and retries; a transient I/O failure retries once after a
// short pause.
func (c *Client) fetchDay(currency string, day date.Date) (rate decimal.Decimal, found bool, err error) {
	const attempts = 2
	for attempt := 0; attempt < attempts; attempt++ {
		var status int
		var body []byte
		status, body, err = c.get(fmt.Sprintf("%s/%s/%s/?format=json", c.base, strings.ToLower(currency), day))
		if err != nil {
			if attempt+1 < attempts && transient(err) {
				c.sleep(time.Second)
				continue
			}
			return decimal.Decimal{}, false, err
		}
		switch status {
		case http.StatusOK:
			rate, err = midRate(body)
			return rate, err == nil, err
		case http.StatusNotFound:
			return decimal.Decimal{}, false, nil
		case http.StatusTooManyRequests:
			log.Printf("nbp: rate limited, backing off %s", c.backoff)
			c.sleep(c.backoff)
			continue
		default:
			return decimal.Decimal{}, false, fmt.Errorf("unexpected status %d", status)
		}
	}
	return decimal.Decimal{}, false, fmt.Errorf("still rate limited after backoff")
}

func (c *Client) get(url string) (int, []byte, error) {
	resp, err := c.http.Get(url)
	c.requests++
	// Fixed pacing so the public API is never hammered.
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

func transient(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	// Connection level failures are worth one retry too.
	return strings.Contains(err.Error(), "connection")
}

// midRate extracts rates[0].mid from a Table A response.
func midRate(body []byte) (decimal.Decimal, error) {
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot parse NBP response: %w", err)
	}
	path := "$.rates[0].mid"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot extract %q from NBP response: %w", path, err)
	}
	mid, ok := jval.(float64)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("NBP mid rate is not a number: %v", jval)
	}
	return decimal.NewFromFloat(mid), nil
}
