package nbp

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmazur/pit38/date"
)

// newTestClient returns a client against the given handler with sleeps
// recorded instead of slept.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client())
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

// tableA answers like the NBP API: rates[day] published days, 404 otherwise.
func tableA(t *testing.T, rates map[string]float64, requested *[]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		day := parts[len(parts)-1]
		if requested != nil {
			*requested = append(*requested, day)
		}
		mid, ok := rates[day]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"table":"A","currency":"test","rates":[{"no":"1/A/NBP/2025","effectiveDate":%q,"mid":%v}]}`, day, mid)
	})
}

func TestRateLocalCurrencyIsTrivial(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("PLN must not hit the network")
	}))

	rate, err := c.Rate("PLN", date.MustParse("2025-03-10"))
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if rate.String() != "1" {
		t.Errorf("Rate(PLN) = %s, want 1", rate)
	}
	if c.Requests() != 0 {
		t.Errorf("Requests = %d, want 0", c.Requests())
	}
}

func TestRateStartsAtPrecedingDayAndWalksBack(t *testing.T) {
	// Transaction on Monday 2025-06-16: Sunday and Saturday are not
	// published, Friday 2025-06-13 is.
	var requested []string
	c, _ := newTestClient(t, tableA(t, map[string]float64{"2025-06-13": 4.02}, &requested))

	rate, err := c.Rate("USD", date.MustParse("2025-06-16"))
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if rate.String() != "4.02" {
		t.Errorf("Rate = %s, want 4.02", rate)
	}
	want := []string{"2025-06-15", "2025-06-14", "2025-06-13"}
	if fmt.Sprint(requested) != fmt.Sprint(want) {
		t.Errorf("requested days %v, want %v", requested, want)
	}
}

func TestRateCachesResolvedDays(t *testing.T) {
	var requested []string
	c, _ := newTestClient(t, tableA(t, map[string]float64{"2025-06-13": 4.02}, &requested))

	if _, err := c.Rate("USD", date.MustParse("2025-06-16")); err != nil {
		t.Fatal(err)
	}
	first := c.Requests()
	if _, err := c.Rate("USD", date.MustParse("2025-06-16")); err != nil {
		t.Fatal(err)
	}
	if c.Requests() != first {
		t.Errorf("second lookup issued %d extra requests, want 0 (cache hit)", c.Requests()-first)
	}

	// A transaction one day later probes only the one day not walked
	// yet: unpublished days are remembered too, and the publication day
	// comes from the cache.
	if _, err := c.Rate("USD", date.MustParse("2025-06-17")); err != nil {
		t.Fatal(err)
	}
	if c.Requests() != first+1 {
		t.Errorf("next-day lookup issued %d extra requests, want 1 (only 2025-06-16 is unknown)", c.Requests()-first)
	}
	if last := requested[len(requested)-1]; last != "2025-06-16" {
		t.Errorf("last fetched day = %s, want 2025-06-16", last)
	}
}

func TestRateFailsAfterFourteenDays(t *testing.T) {
	var requested []string
	c, _ := newTestClient(t, tableA(t, nil, &requested)) // nothing ever published

	_, err := c.Rate("XYZ", date.MustParse("2025-06-16"))
	var unavailable *RateUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want RateUnavailableError", err)
	}
	if unavailable.Currency != "XYZ" {
		t.Errorf("Currency = %q", unavailable.Currency)
	}
	if len(requested) != 14 {
		t.Errorf("walked %d days, want exactly 14", len(requested))
	}
	// Deterministic: the same failed lookup fails identically.
	if _, err2 := c.Rate("XYZ", date.MustParse("2025-06-16")); !errors.As(err2, &unavailable) {
		t.Errorf("second failure = %v", err2)
	}
}

func TestRateBacksOffOnRateLimit(t *testing.T) {
	limited := true
	c, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limited {
			limited = false
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"rates":[{"mid":4.5}]}`)
	}))

	rate, err := c.Rate("USD", date.MustParse("2025-06-16"))
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if rate.String() != "4.5" {
		t.Errorf("Rate = %s, want 4.5 (same day retried after backoff)", rate)
	}
	found := false
	for _, d := range *slept {
		if d == c.backoff {
			found = true
		}
	}
	if !found {
		t.Errorf("slept %v, want a %s backoff in there", *slept, c.backoff)
	}
}

// failingOnce fails the first round trip with a timeout-ish error, then delegates.
type failingOnce struct {
	base   http.RoundTripper
	failed bool
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func (f *failingOnce) RoundTrip(req *http.Request) (*http.Response, error) {
	if !f.failed {
		f.failed = true
		return nil, timeoutError{}
	}
	return f.base.RoundTrip(req)
}

func TestRateRetriesOnceOnTimeout(t *testing.T) {
	srv := httptest.NewServer(tableA(t, map[string]float64{"2025-06-15": 4.1}, nil))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: &failingOnce{base: http.DefaultTransport}}
	c := NewClient(srv.URL, hc)
	c.sleep = func(time.Duration) {}

	rate, err := c.Rate("USD", date.MustParse("2025-06-16"))
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if rate.String() != "4.1" {
		t.Errorf("Rate = %s, want 4.1 (first attempt timed out, retry succeeded)", rate)
	}
}
