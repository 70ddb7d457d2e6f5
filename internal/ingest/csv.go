package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one parsed line of a partner CSV export. Reward and OrderNumber are
// cumulative totals since the partner's epoch, not period deltas.
type Row struct {
	ExternalID      string
	CreatorUsername string
	Phone           string
	FirstName       string
	LastName        string
	TargetCity      string
	OrderNumber     int
	Reward          decimal.Decimal
	Status          string
}

// FullName returns the CSV name in "{first} {last}" order.
func (r Row) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ReversedName returns "{last} {first}"; partner exports are not consistent
// about name order.
func (r Row) ReversedName() string {
	return strings.TrimSpace(r.LastName + " " + r.FirstName)
}

var rowColumns = []string{
	"external_id", "creator_username", "phone", "first_name", "last_name",
	"target_city", "eats_order_number", "reward", "status",
}

var ErrMissingHeader = errors.New("csv header is missing required columns")

// ParseRows reads a partner CSV export. Unknown columns are ignored; rows
// with malformed numeric fields are returned with an error entry rather than
// failing the whole file.
func ParseRows(r io.Reader) ([]Row, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range rowColumns {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingHeader, col)
		}
	}

	field := func(rec []string, name string) string {
		i := idx[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	var parseErrors []string
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		row := Row{
			ExternalID:      field(rec, "external_id"),
			CreatorUsername: field(rec, "creator_username"),
			Phone:           field(rec, "phone"),
			FirstName:       field(rec, "first_name"),
			LastName:        field(rec, "last_name"),
			TargetCity:      field(rec, "target_city"),
			Status:          field(rec, "status"),
		}

		if v := field(rec, "eats_order_number"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				parseErrors = append(parseErrors, fmt.Sprintf("line %d: bad eats_order_number %q", line, v))
				continue
			}
			row.OrderNumber = n
		}

		if v := field(rec, "reward"); v != "" {
			d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
			if err != nil {
				parseErrors = append(parseErrors, fmt.Sprintf("line %d: bad reward %q", line, v))
				continue
			}
			row.Reward = d
		}

		rows = append(rows, row)
	}

	return rows, parseErrors, nil
}

var ErrBadFilename = errors.New("filename does not match Leads_{start}-{end}.csv")

// ParsePeriod extracts the reporting period from a filename following the
// Leads_YYYY-MM-DD-YYYY-MM-DD.csv convention.
func ParsePeriod(filename string) (start, end time.Time, err error) {
	name := strings.TrimSuffix(filename, ".csv")
	name = strings.TrimPrefix(name, "Leads_")
	// two ISO dates of 10 chars joined by a dash
	if len(name) != 21 || name[10] != '-' {
		return time.Time{}, time.Time{}, ErrBadFilename
	}

	start, err = time.Parse("2006-01-02", name[:10])
	if err != nil {
		return time.Time{}, time.Time{}, ErrBadFilename
	}
	end, err = time.Parse("2006-01-02", name[11:])
	if err != nil {
		return time.Time{}, time.Time{}, ErrBadFilename
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrBadFilename
	}
	return start, end, nil
}

// PhoneLast4 returns the last four digits of a phone number, ignoring
// formatting characters.
func PhoneLast4(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}
