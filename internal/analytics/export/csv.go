package export

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
)

// Formatter renders numbers for one locale. Locales whose decimal separator
// is a comma get a semicolon delimited CSV.
type Formatter struct {
	printer *message.Printer
	comma   rune
}

// NewFormatter builds a Formatter for tag.
func NewFormatter(tag language.Tag) Formatter {
	printer := message.NewPrinter(tag)
	comma := ','
	if printer.Sprintf("%.1f", 0.5) == "0,5" {
		comma = ';'
	}
	return Formatter{printer: printer, comma: comma}
}

func (f Formatter) money(v decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", v.InexactFloat64())
}

func (f Formatter) percent(v float64) string {
	return f.printer.Sprintf("%.2f", v)
}

func (f Formatter) count(v int64) string {
	return f.printer.Sprintf("%d", v)
}

func (f Formatter) writer(w io.Writer) *csv.Writer {
	writer := csv.NewWriter(w)
	writer.Comma = f.comma
	return writer
}

// WriteKPICSV serialises the headline indicators of a report.
func WriteKPICSV(w io.Writer, f Formatter, summary analytics.KPISummary, label string) error {
	writer := f.writer(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Scope", label},
		{"Total Sales", f.money(summary.TotalSales)},
		{"Sales Count", f.count(summary.TotalCount)},
		{"Average Ticket", f.money(summary.AverageTicket)},
		{"Cash", f.money(summary.ByPayment[analytics.PaymentCash].Amount)},
		{"Debit", f.money(summary.ByPayment[analytics.PaymentDebit].Amount)},
		{"Credit", f.money(summary.ByPayment[analytics.PaymentCredit].Amount)},
		{"Full Time", f.money(summary.ByShift[analytics.ShiftFullTime].Amount)},
		{"Part Time", f.money(summary.ByShift[analytics.ShiftPartTime].Amount)},
		{"Global Objective", f.money(summary.GlobalObjective)},
		{"Global Progress %", f.percent(summary.GlobalProgress)},
		{"Active Today", f.count(int64(summary.ActiveToday))},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRankingCSV emits the promoter ranking, one row per promoter in rank order.
func WriteRankingCSV(w io.Writer, f Formatter, entries []analytics.RankingEntry) error {
	writer := f.writer(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Rank", "Promoter", "Shift", "Sales", "Count", "Objective", "Delta", "Progress %"}); err != nil {
		return err
	}
	for i, e := range entries {
		if err := writer.Write([]string{
			f.count(int64(i + 1)),
			e.PromoterName,
			string(e.Shift),
			f.money(e.Sales),
			f.count(e.Count),
			f.money(e.Objective),
			f.money(e.Delta),
			f.percent(e.Progress),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
