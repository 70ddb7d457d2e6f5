package ingest

import (
	"errors"
	"strings"
	"testing"
)

const sampleCSV = `external_id,creator_username,phone,first_name,last_name,target_city,eats_order_number,reward,status
ext-1,manager1,+7 (900) 123-45-67,Ivan,Petrov,Moscow,42,"1500,75",active
ext-2,manager1,89001112233,Anna,Sidorova,Kazan,7,980.00,active
ext-3,manager2,,Oleg,,Tver,bad,100,active
`

func TestParseRows(t *testing.T) {
	rows, parseErrors, err := ParseRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if len(parseErrors) != 1 || !strings.Contains(parseErrors[0], "eats_order_number") {
		t.Fatalf("parse errors = %v, want one bad eats_order_number", parseErrors)
	}

	r := rows[0]
	if r.ExternalID != "ext-1" || r.CreatorUsername != "manager1" {
		t.Fatalf("row ids = %q/%q", r.ExternalID, r.CreatorUsername)
	}
	if r.FullName() != "Ivan Petrov" || r.ReversedName() != "Petrov Ivan" {
		t.Fatalf("names = %q / %q", r.FullName(), r.ReversedName())
	}
	if r.OrderNumber != 42 {
		t.Fatalf("orders = %d, want 42", r.OrderNumber)
	}
	// decimal comma is normalized
	if !r.Reward.Equal(dec("1500.75")) {
		t.Fatalf("reward = %s, want 1500.75", r.Reward)
	}
}

func TestParseRows_MissingColumn(t *testing.T) {
	_, _, err := ParseRows(strings.NewReader("external_id,phone\nx,y\n"))
	if !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("got %v, want ErrMissingHeader", err)
	}
}

func TestParsePeriod(t *testing.T) {
	start, end, err := ParsePeriod("Leads_2025-06-01-2025-06-15.csv")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if got := start.Format("2006-01-02"); got != "2025-06-01" {
		t.Fatalf("start = %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2025-06-15" {
		t.Fatalf("end = %s", got)
	}
}

func TestParsePeriod_Bad(t *testing.T) {
	cases := []string{
		"report.csv",
		"Leads_2025-06-01.csv",
		"Leads_2025-06-15-2025-06-01.csv", // end before start
		"Leads_2025-13-01-2025-13-02.csv",
	}
	for _, name := range cases {
		if _, _, err := ParsePeriod(name); !errors.Is(err, ErrBadFilename) {
			t.Fatalf("ParsePeriod(%q) = %v, want ErrBadFilename", name, err)
		}
	}
}

func TestPhoneLast4(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+7 (900) 123-45-67", "4567"},
		{"89001112233", "2233"},
		{"123", "123"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := PhoneLast4(tc.in); got != tc.want {
			t.Fatalf("PhoneLast4(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
