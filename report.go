package pit38

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Stats are run statistics surfaced in the report's summary section.
type Stats struct {
	Processed    int // transactions classified
	Malformed    int // rows dropped before classification
	Errors       int // per-row failures converted to review items
	RateLookups  int // NBP API requests
	PriceLookups int // Binance klines requests
}

// Report groups classified records by category, in chronological order
// within each section, together with the aggregate figures.
type Report struct {
	Revenues []Record
	Costs    []Record
	Incomes  []Record
	Warnings []Record
	Ignored  []Record
	Summary  *Summary
	Stats    Stats
}

// Count returns the number of records in the given category.
func (r *Report) Count(c Category) int {
	switch c {
	case Revenue:
		return len(r.Revenues)
	case Cost:
		return len(r.Costs)
	case Income:
		return len(r.Incomes)
	case Warning:
		return len(r.Warnings)
	default:
		return len(r.Ignored)
	}
}

// Records returns the records of the given category.
func (r *Report) Records(c Category) []Record {
	switch c {
	case Revenue:
		return r.Revenues
	case Cost:
		return r.Costs
	case Income:
		return r.Incomes
	case Warning:
		return r.Warnings
	default:
		return r.Ignored
	}
}

// BuildReport classifies all transactions in order and aggregates the
// results. Transactions must already be sorted chronologically: the
// day-preceding rate rule and the resolver caches rely on temporal
// locality.
//
// A failure while classifying one row is contained at the row boundary:
// it is counted and demoted to an Ignored record carrying the error
// text, and the batch continues. Only the complete absence of input is
// fatal, and that is the loader's call, not this one's.
func BuildReport(txs []Transaction, c *Classifier, rules *Rules) *Report {
	report := &Report{}
	total := len(txs)

	var records []Record
	for i, tx := range txs {
		if (i+1)%50 == 0 || i+1 == total {
			log.Printf("classified %d/%d transactions", i+1, total)
		}
		rec, err := classifyOne(c, tx)
		if err != nil {
			report.Stats.Errors++
			rec = Record{
				Tx:       tx,
				Category: Ignored,
				Value:    PLN(0),
				Note:     fmt.Sprintf("unexpected error: %v — verify manually", err),
			}
		}
		records = append(records, rec)
		switch rec.Category {
		case Revenue:
			report.Revenues = append(report.Revenues, rec)
		case Cost:
			report.Costs = append(report.Costs, rec)
		case Income:
			report.Incomes = append(report.Incomes, rec)
		case Warning:
			report.Warnings = append(report.Warnings, rec)
		default:
			report.Ignored = append(report.Ignored, rec)
		}
	}

	report.Stats.Processed = total
	report.Summary = Summarize(records, rules)
	return report
}

// classifyOne contains any panic from the classification of a single row.
func classifyOne(c *Classifier, tx Transaction) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifying %s: %v", tx, r)
		}
	}()
	return c.Classify(tx), nil
}

// WriteFileAtomic writes data to path through a temporary file and a
// rename, so an interrupted run never leaves a partial report behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temporary file in %q: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %q: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}
