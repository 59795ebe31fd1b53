package forecast

import (
	"fmt"

	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
)

// modelParams holds every assumption the simulation reads, resolved once
// before the monthly loop starts. Defaults applied here must stay in sync
// with assumptions.Defaults.
type modelParams struct {
	arpu   float64
	convVS float64
	convSP float64

	// Churn rates cycle year 1, 2, 3, 1, 2, ... over the simulation.
	// ChurnY2 and ChurnY3 fall back to the unified rate when not supplied.
	churnY1 float64
	churnY2 float64
	churnY3 float64

	// Market ceilings for the local beachhead and the global expansion phase.
	marketMaxFollowersLocal  float64
	marketMaxFollowersGlobal float64
	marketMaxPayingLocal     float64
	marketMaxPayingGlobal    float64

	followerAdoptionRampMonths float64
	globalAdoptionRampMonths   float64

	followers0            float64
	followerMonthlyGrowth float64
	postsPerMonth         float64
	reachPerPost          float64
	nonFollowerMultiplier float64
	frequency             float64
	organicCTR            float64

	infAvgFollowers float64
	infReachRate    float64
	infClickRate    float64
	infCollabs      float64
	infReward       float64

	referralRate   float64
	referralReward float64

	existingFreeToPaidRate float64
	freeActiveShare        float64

	orgCostPerPost float64
	otherBudget    float64

	baseFixedCost         float64
	fixedCostAnnualGrowth float64
	dataSubFee            float64
	dataSubThreshold      float64
	xapiFee               float64
	xapiThreshold         float64

	paidAdsMonthlyBudget   float64
	paidAdsMaxAnnualBudget float64
	paidAdsMaxTotalBudget  float64

	followerAdsCPM             float64
	followerAdsReachToFollower float64
	followerAdsCTRToSite       float64
	clickAdsCPC                float64
	clickAdsFollowerThreshold  float64
}

// resolveParams reads every simulation parameter out of the store exactly
// once, falling back to the documented defaults for anything absent, and
// rejects structurally impossible values before the loop runs a single month.
func resolveParams(store *assumptions.Store) (modelParams, error) {
	churn := store.Get("Churn_Rate", store.Get("ChurnY1", 0.06))

	p := modelParams{
		arpu:   store.Get("ARPU", 20),
		convVS: store.Get("ConvVS", 0.13),
		convSP: store.Get("ConvSP", 0.035),

		churnY1: churn,
		churnY2: store.Get("ChurnY2", churn),
		churnY3: store.Get("ChurnY3", churn),

		marketMaxFollowersLocal:  store.Get("Market_Max_Followers_Local", 50000),
		marketMaxFollowersGlobal: store.Get("Market_Max_Followers_Global", 1000000),
		marketMaxPayingLocal:     store.Get("Market_Max_PayingUsers_Local", 2000),
		marketMaxPayingGlobal:    store.Get("Market_Max_PayingUsers_Global", 25000),

		followerAdoptionRampMonths: store.Get("Follower_Adoption_Ramp_Months", 24),
		globalAdoptionRampMonths:   store.Get("Global_Adoption_Ramp_Months", 12),

		followers0:            store.Get("Followers_0", 1000),
		followerMonthlyGrowth: store.Get("Follower_Monthly_Growth", 0.08),
		postsPerMonth:         store.Get("Posts_per_Month_Y1", 120),
		reachPerPost:          store.Get("Reach_per_Post", 0.04),
		nonFollowerMultiplier: store.Get("NonFollower_Reach_Multiplier", 0.5),
		frequency:             store.Get("Frequency_Impressions_per_User", 1.5),
		organicCTR:            store.Get("Organic_CTR_to_Site", 0.015),

		infAvgFollowers: store.Get("Inf_Avg_Followers", 50000),
		infReachRate:    store.Get("Inf_Reach_Rate", 0.3),
		infClickRate:    store.Get("Inf_Click_Rate", 0.02),
		infCollabs:      store.Get("Inf_Collabs_Y1", 1),
		infReward:       store.Get("Influencer_Reward_per_Sub", 10),

		referralRate:   store.Get("Referral_Monthly_Rate", 0.02),
		referralReward: store.Get("Referral_Reward_per_Sub", 10),

		existingFreeToPaidRate: store.Get("Existing_Free_to_Paid_Monthly_Conv_Rate", 0.0075),
		freeActiveShare:        store.Get("Free_Active_Share", 0.5),

		orgCostPerPost: store.Get("Org_Cost_per_Post", 1),
		otherBudget:    store.Get("Other_Marketing_Budget", store.Get("Other_Marketing_Budget_Y1", 200)),

		baseFixedCost:         store.Get("BaseFixedCost", 1000),
		fixedCostAnnualGrowth: store.Get("FixedCost_Annual_Growth", 0.05),
		dataSubFee:            store.Get("DataSub_Fee", 2000),
		dataSubThreshold:      store.Get("DataSub_MRR_Threshold", 5000),
		xapiFee:               store.Get("XAPI_Fee", 5000),
		xapiThreshold:         store.Get("XAPI_MRR_Threshold", 15000),

		paidAdsMonthlyBudget:   store.Get("PaidAds_Monthly_Budget", 500),
		paidAdsMaxAnnualBudget: store.Get("PaidAds_Max_Annual_Budget", 0),
		paidAdsMaxTotalBudget:  store.Get("PaidAds_Max_Total_Budget", 0),

		followerAdsCPM:             store.Get("FollowerAds_CPM_EUR", 7),
		followerAdsReachToFollower: store.Get("FollowerAds_Reach_to_Follower_Rate", 0.1),
		followerAdsCTRToSite:       store.Get("FollowerAds_CTR_to_Site", 0.01),
		clickAdsCPC:                store.Get("ClickAds_CPC_EUR", 2.0),
		clickAdsFollowerThreshold:  store.Get("Follower_Threshold_For_Click_Ads", 20000),
	}

	if err := p.validate(); err != nil {
		return modelParams{}, err
	}
	return p, nil
}

// validate rejects parameter values the arithmetic cannot absorb. Degenerate
// but representable values (zero budgets, zero growth, zero paying caps) are
// allowed; these checks only cover divisors and the follower ceilings the
// phase detection divides by.
func (p modelParams) validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"Market_Max_Followers_Local", p.marketMaxFollowersLocal},
		{"Market_Max_Followers_Global", p.marketMaxFollowersGlobal},
		{"Frequency_Impressions_per_User", p.frequency},
		{"FollowerAds_CPM_EUR", p.followerAdsCPM},
		{"ClickAds_CPC_EUR", p.clickAdsCPC},
	}
	for _, check := range positive {
		if check.value <= 0 {
			return fmt.Errorf("assumption %s must be positive, got %v", check.name, check.value)
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"Market_Max_PayingUsers_Local", p.marketMaxPayingLocal},
		{"Market_Max_PayingUsers_Global", p.marketMaxPayingGlobal},
	}
	for _, check := range nonNegative {
		if check.value < 0 {
			return fmt.Errorf("assumption %s must not be negative, got %v", check.name, check.value)
		}
	}

	return nil
}

// churnForYear returns the churn rate for a simulation year. Rates cycle
// through the three yearly slots, so year 4 reuses year 1's rate.
func (p modelParams) churnForYear(year int) float64 {
	switch (year-1)%constants.ChurnCycleYears + 1 {
	case 1:
		return p.churnY1
	case 2:
		return p.churnY2
	default:
		return p.churnY3
	}
}
