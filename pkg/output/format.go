// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"encoding/csv"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/growthlab/growth-forecast/internal/forecast"
	"github.com/growthlab/growth-forecast/pkg/format"
)

// CSV column names and order come straight from the record structs: the json
// tags carry the historical spreadsheet column names, and the struct field
// order is the export order.
var (
	monthlyHeader = headerFor(reflect.TypeOf(forecast.MonthRecord{}))
	yearlyHeader  = headerFor(reflect.TypeOf(forecast.YearRecord{}))
)

func headerFor(t reflect.Type) []string {
	header := make([]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		header[i] = t.Field(i).Tag.Get("json")
	}
	return header
}

func rowFor(v reflect.Value) []string {
	row := make([]string, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.Int:
			row[i] = strconv.Itoa(int(field.Int()))
		case reflect.Float64:
			row[i] = strconv.FormatFloat(field.Float(), 'f', -1, 64)
		default:
			row[i] = field.String()
		}
	}
	return row
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(results []forecast.Forecast) {
	p := message.NewPrinter(language.English)
	for _, result := range results {
		fmt.Printf("--- Results for scenario %s ---\n", result.Name)
		fmt.Printf("Month | Followers  | Paying | MRR            | Net Cash Flow  | Cumulative Cash\n")
		fmt.Printf("_____ | _________  | ______ | ___            | _____________  | _______________\n")
		for _, m := range result.Monthly {
			_, _ = p.Printf("%2d-%02d | %10.0f | %6.0f | %14s | %14s | %s\n",
				m.Year, m.Month, m.FollowersEnd, m.PayingUsersEnd,
				format.Euro(m.MRR), format.Euro(m.NetCashFlow), format.Euro(m.CumulativeCash))
		}
		fmt.Printf("\nYear | Paying | ARR            | New Customers | Avg CAC      | LTV/CAC | Cash\n")
		fmt.Printf("____ | ______ | ___            | _____________ | _______      | _______ | ____\n")
		for _, y := range result.Yearly {
			_, _ = p.Printf("%4d | %6.0f | %14s | %13.1f | %12s | %7.2f | %s\n",
				y.Year, y.EndPayingUsers, format.Euro(y.ARR), y.TotalNewCustomers,
				format.Euro(y.AverageCAC), y.LTVCACRatio, format.Euro(y.CumulativeCashEndOfYear))
		}
		if len(results) > 1 {
			fmt.Printf("\n")
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(results []forecast.Forecast) {
	fmt.Print(CsvString(results))
}

// CsvString renders the full monthly and yearly tables for every scenario,
// with a comment line separating the sections.
func CsvString(results []forecast.Forecast) string {
	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# scenario: %s (monthly)\n", result.Name)
		w := csv.NewWriter(&b)
		_ = w.Write(monthlyHeader)
		for _, rec := range result.Monthly {
			_ = w.Write(rowFor(reflect.ValueOf(rec)))
		}
		w.Flush()

		fmt.Fprintf(&b, "\n# scenario: %s (yearly)\n", result.Name)
		w = csv.NewWriter(&b)
		_ = w.Write(yearlyHeader)
		for _, rec := range result.Yearly {
			_ = w.Write(rowFor(reflect.ValueOf(rec)))
		}
		w.Flush()
	}
	return b.String()
}
