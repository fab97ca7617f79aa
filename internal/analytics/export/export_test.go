package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
)

func TestWriteKPICSV(t *testing.T) {
	summary := analytics.AggregateKPIs([]analytics.SalesBucket{
		{Category: analytics.PaymentCash, Shift: analytics.ShiftFullTime, Amount: decimal.NewFromInt(1500), Count: 3},
	}, nil, 2)
	buf := &bytes.Buffer{}
	if err := WriteKPICSV(buf, NewFormatter(language.English), summary, "2025-01-01..2025-01-31"); err != nil {
		t.Fatalf("kpi csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 13 {
		t.Fatalf("expected 13 rows, got %d", len(records))
	}
	if records[2][1] != "1,500.00" {
		t.Fatalf("unexpected total %q", records[2][1])
	}
}

func TestWriteRankingCSV(t *testing.T) {
	entries := []analytics.RankingEntry{
		{PromoterID: uuid.New(), PromoterName: "Ana", Shift: analytics.ShiftFullTime, Sales: decimal.NewFromInt(1200), Count: 4, Objective: decimal.NewFromInt(1000), Delta: decimal.NewFromInt(200), Progress: 120},
		{PromoterID: uuid.New(), PromoterName: "Luis", Shift: analytics.ShiftPartTime, Sales: decimal.Zero, Objective: decimal.NewFromInt(500), Delta: decimal.NewFromInt(-500)},
	}
	buf := &bytes.Buffer{}
	if err := WriteRankingCSV(buf, NewFormatter(language.English), entries); err != nil {
		t.Fatalf("ranking csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[1][1] != "Ana" || records[1][0] != "1" {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[2][6] != "-500.00" {
		t.Fatalf("unexpected delta %q", records[2][6])
	}
}

func TestCommaDecimalLocaleUsesSemicolon(t *testing.T) {
	f := NewFormatter(language.German)
	buf := &bytes.Buffer{}
	if err := WriteRankingCSV(buf, f, nil); err != nil {
		t.Fatalf("ranking csv error: %v", err)
	}
	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records[0]) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(records[0]))
	}
}
