package report

import (
	"strings"
	"testing"

	"github.com/growthlab/growth-forecast/internal/forecast"
)

func sampleResults() []forecast.Forecast {
	return []forecast.Forecast{
		{
			Name: "base",
			Monthly: []forecast.MonthRecord{
				{Year: 1, Month: 1, MRR: 400, PayingUsersEnd: 20, FollowersEnd: 1200,
					MarketPhase: "local", CumulativeCash: -1500},
				{Year: 1, Month: 2, MRR: 90000, PayingUsersEnd: 4500, FollowersEnd: 60000,
					MarketPhase: "global", CumulativeCash: 12000},
			},
			Yearly: []forecast.YearRecord{
				{Year: 1, EndPayingUsers: 4500, EndMRR: 90000, ARR: 1080000,
					TotalNewCustomers: 4600, AverageCAC: 45.5, LTV: 250, LTVCACRatio: 5.49,
					CumulativeCashEndOfYear: 12000},
			},
		},
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleResults())

	if !strings.Contains(md, "# Growth forecast report") {
		t.Errorf("Expected report title, got:\n%s", md)
	}
	if !strings.Contains(md, "## Scenario: base") {
		t.Errorf("Expected scenario heading, got:\n%s", md)
	}
	if !strings.Contains(md, "End MRR €90,000.00, ARR run-rate €1,080,000.00") {
		t.Errorf("Expected headline MRR line, got:\n%s", md)
	}
	if !strings.Contains(md, "first reached in year 1, month 2") {
		t.Errorf("Expected ARR milestone line, got:\n%s", md)
	}
	if !strings.Contains(md, "| Year | Paying users |") {
		t.Errorf("Expected yearly table header, got:\n%s", md)
	}
	if !strings.Contains(md, "| 1 | 4500 |") {
		t.Errorf("Expected yearly table row, got:\n%s", md)
	}
	if !strings.Contains(md, "LTV/CAC 5.49") {
		t.Errorf("Expected unit economics line, got:\n%s", md)
	}
}

func TestBuildMarkdownMilestoneNotReached(t *testing.T) {
	results := []forecast.Forecast{
		{
			Name: "slow",
			Monthly: []forecast.MonthRecord{
				{Year: 1, Month: 1, MRR: 500, MarketPhase: "local"},
			},
			Yearly: []forecast.YearRecord{{Year: 1, EndMRR: 500, ARR: 6000}},
		},
	}

	md := BuildMarkdown(results)
	if !strings.Contains(md, "1,000,000 EUR ARR run-rate not reached") {
		t.Errorf("Expected milestone-not-reached line, got:\n%s", md)
	}
}

func TestBuildMarkdownEmptyScenario(t *testing.T) {
	md := BuildMarkdown([]forecast.Forecast{{Name: "empty"}})

	if !strings.Contains(md, "## Scenario: empty") {
		t.Errorf("Expected scenario heading, got:\n%s", md)
	}
	if !strings.Contains(md, "No simulated months.") {
		t.Errorf("Expected empty-scenario note, got:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	md := BuildMarkdown(sampleResults())

	html, err := RenderHTML(md)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	if !strings.HasPrefix(html, "<!doctype html>") {
		t.Errorf("Expected a standalone HTML document, got prefix %q", html[:40])
	}
	if !strings.Contains(html, "<h1") {
		t.Errorf("Expected rendered title heading")
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("Expected the yearly table rendered as an HTML table")
	}
	if !strings.Contains(html, "Scenario: base") {
		t.Errorf("Expected scenario content in the document")
	}
}
