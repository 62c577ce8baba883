package pit38

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/kmazur/pit38/date"
)

// ErrNoRows is returned when the export contains no Spot transaction for
// the target year. It is the only fatal outcome of loading besides a
// structurally broken file.
var ErrNoRows = errors.New("no matching transactions")

// MissingColumnsError reports required logical columns absent from the
// export header, after alias normalization.
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns %v (available: %v)", e.Missing, e.Available)
}

// Column naming is locale-variable: the same Binance download center
// writes Polish or English headers depending on the account language.
var columnAliases = map[string][]string{
	"UTC_Time":  {"UTC_Time", "Czas", "Time", "Date"},
	"Operation": {"Operation", "Operacja", "Type"},
	"Coin":      {"Coin", "Moneta", "Asset", "Currency"},
	"Change":    {"Change", "Zmień", "Amount", "Quantity"},
	"Account":   {"Account", "Konto"},
	"Remark":    {"Remark", "Uwagi", "Note"},
}

var requiredColumns = []string{"UTC_Time", "Operation", "Coin", "Change", "Account"}

// LoadStats reports what happened to the raw rows before classification.
type LoadStats struct {
	Read          int      // data rows in the file
	Malformed     int      // dropped: unparseable timestamp or quantity
	Skipped       int      // dropped: other year or non-Spot account
	OtherAccounts []string // non-Spot account labels seen in the file
}

// LoadCSV reads a Binance export, normalizes its headers, and returns
// the Spot transactions of the rules' target year in chronological
// order. Malformed rows are counted and dropped, never silently.
func LoadCSV(path string, rules *Rules) ([]Transaction, *LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read export %q: %w", path, err)
	}
	content := strings.TrimPrefix(string(data), "\ufeff")

	sep, err := sniffSeparator(content)
	if err != nil {
		return nil, nil, fmt.Errorf("export %q: %w", path, err)
	}

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = sep
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse export %q: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("export %q: %w", path, ErrNoRows)
	}

	index, err := normalizeHeader(rows[0])
	if err != nil {
		return nil, nil, err
	}

	stats := &LoadStats{}
	accounts := map[string]bool{}
	var txs []Transaction
	for _, row := range rows[1:] {
		stats.Read++
		tx, ok := parseRow(row, index)
		if !ok {
			stats.Malformed++
			continue
		}
		if !strings.EqualFold(tx.Account, "Spot") {
			accounts[tx.Account] = true
			stats.Skipped++
			continue
		}
		if tx.Time.Year() != rules.Year {
			stats.Skipped++
			continue
		}
		txs = append(txs, tx)
	}
	for a := range accounts {
		stats.OtherAccounts = append(stats.OtherAccounts, a)
	}
	sort.Strings(stats.OtherAccounts)
	if len(stats.OtherAccounts) > 0 {
		// Futures and margin accounts need a separate legal analysis and
		// are not settled by this tool.
		log.Printf("skipped transactions on non-Spot accounts: %v", stats.OtherAccounts)
	}
	if stats.Malformed > 0 {
		log.Printf("dropped %d malformed rows (unparseable timestamp or quantity)", stats.Malformed)
	}

	if len(txs) == 0 {
		return nil, stats, fmt.Errorf("no Spot transactions for year %d: %w", rules.Year, ErrNoRows)
	}

	// Chronological order matters: the day-preceding rate rule and the
	// resolver caches depend on it.
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Time.Before(txs[j].Time) })
	return txs, stats, nil
}

// sniffSeparator probes the first lines with each candidate separator
// and keeps the first that yields at least four columns.
func sniffSeparator(content string) (rune, error) {
	probe := content
	if i := nthIndex(content, '\n', 5); i > 0 {
		probe = content[:i]
	}
	for _, sep := range []rune{',', ';', '\t'} {
		r := csv.NewReader(strings.NewReader(probe))
		r.Comma = sep
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil || len(rows) == 0 {
			continue
		}
		if len(rows[0]) >= 4 {
			return sep, nil
		}
	}
	return 0, errors.New("cannot detect CSV separator (checked ',', ';', tab)")
}

func nthIndex(s string, b byte, n int) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			if n--; n == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader maps the export header to canonical column indexes.
func normalizeHeader(header []string) (map[string]int, error) {
	present := map[string]int{}
	for i, h := range header {
		present[strings.TrimSpace(h)] = i
	}
	index := map[string]int{}
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := present[alias]; ok {
				index[canonical] = i
				break
			}
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		var available []string
		for h := range present {
			available = append(available, h)
		}
		sort.Strings(available)
		sort.Strings(missing)
		return nil, &MissingColumnsError{Missing: missing, Available: available}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int) (Transaction, bool) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t, err := date.ParseTimestamp(field("UTC_Time"))
	if err != nil {
		return Transaction{}, false
	}
	change, err := ParseChange(field("Change"))
	if err != nil {
		return Transaction{}, false
	}
	account := field("Account")
	if account == "" {
		account = "Spot"
	}
	return Transaction{
		Time:      t,
		Operation: field("Operation"),
		Asset:     strings.ToUpper(field("Coin")),
		Change:    change,
		Account:   account,
		Remark:    field("Remark"),
	}, true
}
