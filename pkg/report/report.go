// Package report renders forecast results into an executive markdown summary
// and a standalone HTML document.
package report

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/growthlab/growth-forecast/internal/forecast"
	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/format"
)

// arrTarget is the ARR run-rate milestone the summary reports on.
const arrTarget = 1000000

// BuildMarkdown produces a per-scenario executive summary: headline metrics,
// the ARR milestone month if reached, and the yearly table.
func BuildMarkdown(results []forecast.Forecast) string {
	var b strings.Builder
	b.WriteString("# Growth forecast report\n")

	for _, result := range results {
		fmt.Fprintf(&b, "\n## Scenario: %s\n\n", result.Name)
		if len(result.Monthly) == 0 {
			b.WriteString("No simulated months.\n")
			continue
		}

		last := result.Monthly[len(result.Monthly)-1]
		fmt.Fprintf(&b, "- Simulated horizon: %d years (%d months)\n", last.Year, len(result.Monthly))
		fmt.Fprintf(&b, "- End MRR %s, ARR run-rate %s\n",
			format.Euro(last.MRR), format.Euro(last.MRR*constants.MonthsPerYear))
		fmt.Fprintf(&b, "- Paying users at end: %.0f, followers %.0f (%s market)\n",
			last.PayingUsersEnd, last.FollowersEnd, last.MarketPhase)
		fmt.Fprintf(&b, "- Cumulative cash: %s\n", format.Euro(last.CumulativeCash))

		if i, ok := arrMilestone(result.Monthly); ok {
			fmt.Fprintf(&b, "- 1,000,000 EUR ARR run-rate first reached in year %d, month %d\n",
				result.Monthly[i].Year, result.Monthly[i].Month)
		} else {
			b.WriteString("- 1,000,000 EUR ARR run-rate not reached\n")
		}

		if len(result.Yearly) > 0 {
			final := result.Yearly[len(result.Yearly)-1]
			fmt.Fprintf(&b, "- Final year unit economics: average CAC %s, LTV %s, LTV/CAC %.2f\n",
				format.Euro(final.AverageCAC), format.Euro(final.LTV), final.LTVCACRatio)
			b.WriteString("\n")
			writeYearlyTable(&b, result.Yearly)
		}
	}

	return b.String()
}

func arrMilestone(monthly []forecast.MonthRecord) (int, bool) {
	for i, m := range monthly {
		if m.MRR*constants.MonthsPerYear >= arrTarget {
			return i, true
		}
	}
	return 0, false
}

func writeYearlyTable(b *strings.Builder, yearly []forecast.YearRecord) {
	b.WriteString("| Year | Paying users | MRR | ARR | New customers | Avg CAC | LTV/CAC | Cumulative cash |\n")
	b.WriteString("| ---: | ---: | ---: | ---: | ---: | ---: | ---: | ---: |\n")
	for _, y := range yearly {
		fmt.Fprintf(b, "| %d | %.0f | %s | %s | %.1f | %s | %.2f | %s |\n",
			y.Year, y.EndPayingUsers, format.Euro(y.EndMRR), format.Euro(y.ARR),
			y.TotalNewCustomers, format.Euro(y.AverageCAC), y.LTVCACRatio,
			format.Euro(y.CumulativeCashEndOfYear))
	}
}

// RenderHTML converts the markdown report into a standalone HTML document
// with inline styling so the file can be opened directly in a browser.
func RenderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	return "<!doctype html><html><head><meta charset='utf-8'><title>Growth Forecast Report</title>" +
		"<style>" +
		"body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#1c1917;}" +
		"table{border-collapse:collapse;font-size:0.9rem;}" +
		"th,td{border:1px solid #a8a29e;padding:0.35rem 0.55rem;text-align:right;}" +
		"thead th{background:#f1f5f9;}" +
		"</style></head><body>" + content.String() + "</body></html>", nil
}
