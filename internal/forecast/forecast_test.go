package forecast

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/growthlab/growth-forecast/internal/config"
	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/mathutil"
)

func TestRunRejectsInvalidDuration(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	for _, years := range []int{0, -1} {
		if _, err := engine.Run(assumptions.New(nil), years); err == nil {
			t.Errorf("Run() with %d years expected error, got nil", years)
		}
	}
}

func TestRunProducesFullTables(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	projection, err := engine.Run(assumptions.New(nil), 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(projection.Monthly) != 36 {
		t.Errorf("Expected 36 monthly records, got %d", len(projection.Monthly))
	}
	if len(projection.Yearly) != 3 {
		t.Errorf("Expected 3 yearly records, got %d", len(projection.Yearly))
	}

	for i, rec := range projection.Monthly {
		expectedYear := i/12 + 1
		expectedMonth := i%12 + 1
		if rec.Year != expectedYear || rec.Month != expectedMonth {
			t.Errorf("Month %d: expected year/month %d/%d, got %d/%d",
				i, expectedYear, expectedMonth, rec.Year, rec.Month)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	store := assumptions.New(map[string]float64{
		"Followers_0":             2500,
		"Follower_Monthly_Growth": 0.1,
		"PaidAds_Monthly_Budget":  800,
	})

	first, err := engine.Run(store, 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := engine.Run(store, 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical projections from identical inputs")
	}
}

func TestRunCarryForward(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	projection, err := engine.Run(assumptions.New(nil), 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	monthly := projection.Monthly
	if monthly[0].FollowersStart != 1000 {
		t.Errorf("Expected month 1 to start at the Followers_0 default 1000, got %v", monthly[0].FollowersStart)
	}
	if monthly[0].PayingUsersStart != 0 {
		t.Errorf("Expected month 1 to start with 0 paying users, got %v", monthly[0].PayingUsersStart)
	}
	if monthly[0].FreeUsersStart != 0 {
		t.Errorf("Expected month 1 to start with 0 free users, got %v", monthly[0].FreeUsersStart)
	}

	for i := 1; i < len(monthly); i++ {
		prev, cur := monthly[i-1], monthly[i]
		if cur.FollowersStart != prev.FollowersEnd {
			t.Errorf("Month %d: followers start %v != previous end %v", i+1, cur.FollowersStart, prev.FollowersEnd)
		}
		if cur.PayingUsersStart != prev.PayingUsersEnd {
			t.Errorf("Month %d: paying start %v != previous end %v", i+1, cur.PayingUsersStart, prev.PayingUsersEnd)
		}
		if cur.FreeUsersStart != prev.FreeUsersEnd {
			t.Errorf("Month %d: free start %v != previous end %v", i+1, cur.FreeUsersStart, prev.FreeUsersEnd)
		}
		if cur.CumulativeSignups != prev.CumulativeSignups+cur.Signups {
			t.Errorf("Month %d: cumulative signups %v != %v + %v", i+1,
				cur.CumulativeSignups, prev.CumulativeSignups, cur.Signups)
		}
	}
}

func TestRunInvariants(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	projection, err := engine.Run(assumptions.New(map[string]float64{
		"PaidAds_Monthly_Budget": 1000,
	}), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	cashSum := 0.0
	for i, rec := range projection.Monthly {
		followerCap := 50000.0
		payingCap := 2000.0
		if rec.MarketPhase == constants.MarketPhaseGlobal {
			followerCap = 1000000.0
			payingCap = 25000.0
		}

		if rec.FollowersEnd < 0 || rec.FollowersEnd > followerCap {
			t.Errorf("Month %d: followers end %v outside [0, %v]", i+1, rec.FollowersEnd, followerCap)
		}
		if rec.PayingUsersEnd < 0 || rec.PayingUsersEnd > payingCap {
			t.Errorf("Month %d: paying users end %v outside [0, %v]", i+1, rec.PayingUsersEnd, payingCap)
		}
		if rec.FreeUsersEnd < 0 {
			t.Errorf("Month %d: free users end %v is negative", i+1, rec.FreeUsersEnd)
		}

		sum := rec.NewPayersFromNewSignups + rec.NewPayersFromExistingFree + rec.NewPayersFromReferral
		if rec.NewPayingUsers != sum {
			t.Errorf("Month %d: new paying users %v != component sum %v", i+1, rec.NewPayingUsers, sum)
		}

		costs := rec.TotalMarketingSpend + rec.DirectCosts + rec.BaseFixedCost
		if rec.TotalCosts != costs {
			t.Errorf("Month %d: total costs %v != %v", i+1, rec.TotalCosts, costs)
		}
		if rec.NetCashFlow != rec.MRR-rec.TotalCosts {
			t.Errorf("Month %d: net cash flow %v != MRR %v - costs %v", i+1, rec.NetCashFlow, rec.MRR, rec.TotalCosts)
		}

		cashSum += rec.NetCashFlow
		if !mathutil.WithinTolerance(rec.CumulativeCash, cashSum, 1e-6) {
			t.Errorf("Month %d: cumulative cash %v != running sum %v", i+1, rec.CumulativeCash, cashSum)
		}
	}

	for _, year := range projection.Yearly {
		if year.ARR != year.EndMRR*12 {
			t.Errorf("Year %d: ARR %v != end MRR %v * 12", year.Year, year.ARR, year.EndMRR)
		}
		if year.RevenueYear > 0 && (year.GrossMarginYear < 0 || year.GrossMarginYear > 1) {
			t.Errorf("Year %d: gross margin %v outside [0, 1]", year.Year, year.GrossMarginYear)
		}
		if year.TotalNewCustomers == 0 && year.AverageCAC != 0 {
			t.Errorf("Year %d: average CAC %v with zero new customers", year.Year, year.AverageCAC)
		}
	}
}

func TestRunStructuralValidation(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	tests := []struct {
		name      string
		parameter string
		value     float64
	}{
		{"zero local follower cap", "Market_Max_Followers_Local", 0},
		{"negative global follower cap", "Market_Max_Followers_Global", -100},
		{"zero frequency", "Frequency_Impressions_per_User", 0},
		{"zero CPM", "FollowerAds_CPM_EUR", 0},
		{"negative CPC", "ClickAds_CPC_EUR", -2},
		{"negative local paying cap", "Market_Max_PayingUsers_Local", -1},
		{"negative global paying cap", "Market_Max_PayingUsers_Global", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := assumptions.New(map[string]float64{tt.parameter: tt.value})
			_, err := engine.Run(store, 1)
			if err == nil {
				t.Fatalf("Run() expected error for %s = %v, got nil", tt.parameter, tt.value)
			}
			if !strings.Contains(err.Error(), tt.parameter) {
				t.Errorf("Expected error to name %s, got %v", tt.parameter, err)
			}
		})
	}
}

func TestRunAllowsZeroPayingCap(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	projection, err := engine.Run(assumptions.New(map[string]float64{
		"Market_Max_PayingUsers_Local": 0,
	}), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// A zero paying cap is degenerate but representable: nobody ever pays
	// and referrals have no market to grow into.
	for i, rec := range projection.Monthly {
		if rec.PayingUsersEnd != 0 {
			t.Errorf("Month %d: expected 0 paying users with zero cap, got %v", i+1, rec.PayingUsersEnd)
		}
		if rec.NewPayersFromReferral != 0 {
			t.Errorf("Month %d: expected 0 referral payers with zero cap, got %v", i+1, rec.NewPayersFromReferral)
		}
	}
}

func TestGetForecast(t *testing.T) {
	logger := zap.NewNop()

	conf := config.Configuration{
		Simulation: config.SimulationConfig{Years: 2},
		Assumptions: map[string]interface{}{
			"followers_0": 2000,
		},
		Scenarios: []config.Scenario{
			{Name: "base", Active: true},
			{
				Name:   "boosted",
				Active: true,
				Assumptions: map[string]interface{}{
					"paidads_monthly_budget": 1500,
				},
			},
			{Name: "parked", Active: false},
		},
	}
	if err := conf.ParseAssumptions(); err != nil {
		t.Fatalf("ParseAssumptions() error = %v", err)
	}

	results, err := GetForecast(logger, conf)
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 forecast results, got %d", len(results))
	}
	if results[0].Name != "base" || results[1].Name != "boosted" {
		t.Errorf("Expected scenarios [base boosted], got [%s %s]", results[0].Name, results[1].Name)
	}

	for _, result := range results {
		if len(result.Monthly) != 24 {
			t.Errorf("Scenario %s: expected 24 monthly records, got %d", result.Name, len(result.Monthly))
		}
		if len(result.Yearly) != 2 {
			t.Errorf("Scenario %s: expected 2 yearly records, got %d", result.Name, len(result.Yearly))
		}
	}

	// The boosted scenario spends more on ads than the base scenario.
	if results[1].Monthly[0].PaidAdsMarketingSpend <= results[0].Monthly[0].PaidAdsMarketingSpend {
		t.Errorf("Expected boosted ads spend %v to exceed base %v",
			results[1].Monthly[0].PaidAdsMarketingSpend, results[0].Monthly[0].PaidAdsMarketingSpend)
	}
}

func TestGetForecastReportsScenarioErrors(t *testing.T) {
	conf := config.Configuration{
		Scenarios: []config.Scenario{
			{
				Name:   "impossible",
				Active: true,
				Assumptions: map[string]interface{}{
					"market_max_followers_local": 0,
				},
			},
		},
	}
	if err := conf.ParseAssumptions(); err != nil {
		t.Fatalf("ParseAssumptions() error = %v", err)
	}

	_, err := GetForecast(zap.NewNop(), conf)
	if err == nil {
		t.Fatalf("GetForecast() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "impossible") {
		t.Errorf("Expected error to name the scenario, got %v", err)
	}
	if !strings.Contains(err.Error(), "Market_Max_Followers_Local") {
		t.Errorf("Expected error to name the parameter, got %v", err)
	}
}
