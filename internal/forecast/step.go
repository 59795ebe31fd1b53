package forecast

import (
	"math"

	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/mathutil"
)

// accumulator carries the running state threaded through consecutive monthly
// steps. The driver owns one accumulator per run; it must never be reused
// across runs.
type accumulator struct {
	annualPaidAdsSpend     float64
	cumulativePaidAdsSpend float64
	trackingYear           int

	// globalPhaseStartMonth is the 1-based month index in which the local
	// follower market first saturated, or 0 while still in the local phase.
	// Set once, never reset.
	globalPhaseStartMonth int

	cumulativeMarketingSpend float64
	cumulativeNewCustomers   float64
}

func newAccumulator() accumulator {
	return accumulator{trackingYear: 1}
}

// saturatingGrowth applies the discrete logistic growth law: growth is
// proportional to the current size, scaled linearly by the adoption ramp and
// braked by proximity to the market cap. A ramp of zero or less means no
// ramp (adoption factor 1). The returned saturation factor also gates the
// paid-ads decision for the month, so organic growth and the ads gate can
// never drift apart.
func saturatingGrowth(current, baseRate, cap, monthsIntoPhase, rampMonths float64) (growth, adoptionFactor, saturationFactor float64) {
	adoptionFactor = 1.0
	if rampMonths > 0 {
		adoptionFactor = mathutil.Min(monthsIntoPhase/rampMonths, 1.0)
	}
	saturationFactor = mathutil.Max(0, 1.0-current/cap)
	growth = current * baseRate * adoptionFactor * saturationFactor
	return growth, adoptionFactor, saturationFactor
}

// adsPhase identifies the active branch of the monthly paid-ads decision
// table. Branches are evaluated in fixed priority order: the saturation gate
// first, then the follower-ads threshold, then budget availability. Exactly
// one branch is active per month.
type adsPhase int

const (
	adsSaturated adsPhase = iota
	adsFollowerPhase
	adsClickPhase
	adsBudgetExhausted
)

// decideAdsPhase picks the paid-ads branch for a month. A threshold below
// zero is the sentinel for "never switch to click ads".
func decideAdsPhase(saturationFactor, budget, followersStart, clickThreshold float64) adsPhase {
	switch {
	case saturationFactor < constants.AdsSaturationCutoff:
		return adsSaturated
	case budget > 0 && (clickThreshold < 0 || followersStart < clickThreshold):
		return adsFollowerPhase
	case budget > 0:
		return adsClickPhase
	default:
		return adsBudgetExhausted
	}
}

// paidAdsOutcome holds everything one month of paid-ads activity produces.
// The zero value is the outcome of the Saturated and BudgetExhausted phases.
type paidAdsOutcome struct {
	followerAdsSpend float64
	clickAdsSpend    float64
	impressions      float64
	reach            float64
	newFollowers     float64
	followerVisitors float64
	clickVisitors    float64
}

func (o paidAdsOutcome) spend() float64 {
	return o.followerAdsSpend + o.clickAdsSpend
}

// runPaidAds converts the month's available budget into ad results for the
// active phase. Follower ads buy impressions by CPM and convert unique reach
// into followers and site visitors; click ads buy site visitors directly by
// CPC (one click counts as one visitor).
func runPaidAds(p modelParams, phase adsPhase, budget float64) paidAdsOutcome {
	var out paidAdsOutcome
	switch phase {
	case adsFollowerPhase:
		out.followerAdsSpend = budget
		out.impressions = budget / p.followerAdsCPM * 1000.0
		out.reach = out.impressions / p.frequency
		out.newFollowers = out.reach * p.followerAdsReachToFollower
		out.followerVisitors = out.reach * p.followerAdsCTRToSite
	case adsClickPhase:
		out.clickAdsSpend = budget
		out.clickVisitors = budget / p.clickAdsCPC
	}
	return out
}

// stepMonth produces the record for 0-based month i from the previous
// month's record (nil in month 1) and the running accumulators. All
// arithmetic is total: every ratio substitutes 0 when its denominator is not
// positive, and caps clamp silently, so a single month can never fail.
func stepMonth(p modelParams, prev *MonthRecord, acc *accumulator, i int) MonthRecord {
	rec := MonthRecord{
		Year:  i/constants.MonthsPerYear + 1,
		Month: i%constants.MonthsPerYear + 1,
		Posts: p.postsPerMonth,
		ARPU:  p.arpu,
	}
	monthIndex := i + 1

	// Carry-forward from the previous month, or seed values in month 1.
	if prev != nil {
		rec.FollowersStart = prev.FollowersEnd
		rec.PayingUsersStart = prev.PayingUsersEnd
		rec.FreeUsersStart = prev.FreeUsersEnd
		rec.CumulativeSignups = prev.CumulativeSignups
	} else {
		rec.FollowersStart = p.followers0
	}

	// Market phase detection: once followers reach 95% of the local ceiling
	// the simulation switches to the global market, with its own cap and a
	// fresh adoption ramp counted from the switch month.
	localSaturationRatio := rec.FollowersStart / p.marketMaxFollowersLocal
	inGlobalPhase := localSaturationRatio >= constants.LocalSaturationThreshold
	if inGlobalPhase && acc.globalPhaseStartMonth == 0 {
		acc.globalPhaseStartMonth = monthIndex
	}

	marketCap := p.marketMaxFollowersLocal
	payingCap := p.marketMaxPayingLocal
	rampMonths := p.followerAdoptionRampMonths
	monthsIntoPhase := float64(monthIndex)
	rec.MarketPhase = constants.MarketPhaseLocal
	if inGlobalPhase {
		marketCap = p.marketMaxFollowersGlobal
		payingCap = p.marketMaxPayingGlobal
		rampMonths = p.globalAdoptionRampMonths
		monthsIntoPhase = float64(monthIndex - acc.globalPhaseStartMonth + 1)
		rec.MarketPhase = constants.MarketPhaseGlobal
	}

	organicGrowth, _, saturationFactor := saturatingGrowth(
		rec.FollowersStart, p.followerMonthlyGrowth, marketCap, monthsIntoPhase, rampMonths)
	rec.AdsSaturationFactor = saturationFactor
	rec.MarketSaturationPct = mathutil.CalculatePercentage(rec.FollowersStart, marketCap)

	// The annual ad-spend tracker resets at each year boundary; the lifetime
	// tracker never resets. Remaining headroom under either cap limits this
	// month's budget, clamped at zero once a cap is exceeded.
	if rec.Year != acc.trackingYear {
		acc.annualPaidAdsSpend = 0
		acc.trackingYear = rec.Year
	}
	budget := p.paidAdsMonthlyBudget
	if p.paidAdsMaxAnnualBudget > 0 {
		budget = mathutil.Min(budget, mathutil.Max(0, p.paidAdsMaxAnnualBudget-acc.annualPaidAdsSpend))
	}
	if p.paidAdsMaxTotalBudget > 0 {
		budget = mathutil.Min(budget, mathutil.Max(0, p.paidAdsMaxTotalBudget-acc.cumulativePaidAdsSpend))
	}

	phase := decideAdsPhase(saturationFactor, budget, rec.FollowersStart, p.clickAdsFollowerThreshold)
	ads := runPaidAds(p, phase, budget)
	acc.cumulativePaidAdsSpend += ads.spend()
	acc.annualPaidAdsSpend += ads.spend()

	rec.FollowerAdsSpend = ads.followerAdsSpend
	rec.ClickAdsSpend = ads.clickAdsSpend
	rec.AnnualPaidAdsSpend = acc.annualPaidAdsSpend
	rec.CumulativePaidAdsSpend = acc.cumulativePaidAdsSpend
	rec.FollowerAdsImpressions = ads.impressions
	rec.FollowerAdsReach = ads.reach
	rec.FollowerAdsNewFollowers = ads.newFollowers
	rec.FollowerAdsVisitors = ads.followerVisitors
	rec.ClickAdsVisitors = ads.clickVisitors

	rec.FollowersEnd = mathutil.Min(rec.FollowersStart+organicGrowth+ads.newFollowers, marketCap)

	// Organic social funnel: average followers drive impressions, the
	// non-follower multiplier expands reach beyond the follower base, and
	// dividing by frequency converts impressions back to unique people.
	avgFollowers := (rec.FollowersStart + rec.FollowersEnd) / 2
	rec.FollowerImpressions = avgFollowers * p.postsPerMonth * p.reachPerPost * p.frequency
	rec.NonFollowerImpressions = rec.FollowerImpressions * p.nonFollowerMultiplier
	rec.SocialViews = rec.FollowerImpressions + rec.NonFollowerImpressions
	rec.NewUniqueNonFollowers = rec.NonFollowerImpressions / p.frequency
	rec.OrganicVisitors = rec.NewUniqueNonFollowers * p.organicCTR

	// Visitors per collaboration are always derived from the influencer
	// audience assumptions, never read as a direct input.
	rec.InfluencerVisitors = p.infCollabs * (p.infAvgFollowers * p.infReachRate * p.infClickRate)
	rec.OtherVisitors = p.otherBudget / constants.OtherChannelCPC
	rec.PaidAdsVisitors = ads.followerVisitors + ads.clickVisitors
	rec.VisitorsTotal = rec.OrganicVisitors + rec.InfluencerVisitors + rec.OtherVisitors + rec.PaidAdsVisitors

	// Signups attribute to channels proportionally to traffic.
	rec.Signups = rec.VisitorsTotal * p.convVS
	rec.OrganicSignups = rec.Signups * mathutil.SafeRatio(rec.OrganicVisitors, rec.VisitorsTotal)
	rec.InfluencerSignups = rec.Signups * mathutil.SafeRatio(rec.InfluencerVisitors, rec.VisitorsTotal)
	rec.OtherSignups = rec.Signups * mathutil.SafeRatio(rec.OtherVisitors, rec.VisitorsTotal)
	rec.PaidAdsSignups = rec.Signups * mathutil.SafeRatio(rec.PaidAdsVisitors, rec.VisitorsTotal)
	rec.CumulativeSignups += rec.Signups

	// Referral conversion applies once to this month's signup cohort and is
	// throttled as the paying market fills up.
	referralCapacity := 0.0
	if payingCap > 0 {
		referralCapacity = mathutil.Max(0, 1.0-rec.PayingUsersStart/payingCap)
	}
	rec.NewPayersFromReferral = rec.Signups * p.referralRate * referralCapacity

	rec.OrganicNewPayers = rec.OrganicSignups * p.convSP
	rec.InfluencerNewPayers = rec.InfluencerSignups * p.convSP
	rec.OtherNewPayers = rec.OtherSignups * p.convSP
	rec.PaidAdsNewPayers = rec.PaidAdsSignups * p.convSP

	rec.ChurnRate = p.churnForYear(rec.Year)
	rec.ChurnedUsers = rec.PayingUsersStart * rec.ChurnRate

	// Delayed conversion out of the existing free base, on top of the
	// immediate conversion of new signups.
	rec.FreeActiveUsers = rec.FreeUsersStart * p.freeActiveShare
	rec.NewPayersFromExistingFree = mathutil.Max(0, math.Round(rec.FreeActiveUsers*p.existingFreeToPaidRate))

	rec.NewPayersFromNewSignups = rec.OrganicNewPayers + rec.InfluencerNewPayers + rec.OtherNewPayers + rec.PaidAdsNewPayers
	rec.NewPayingUsers = rec.NewPayersFromNewSignups + rec.NewPayersFromExistingFree + rec.NewPayersFromReferral

	newFreeUsers := rec.Signups - rec.NewPayersFromNewSignups
	rec.FreeUsersEnd = mathutil.Max(0, rec.FreeUsersStart+newFreeUsers-rec.NewPayersFromExistingFree)

	rec.PayingUsersEnd = mathutil.Min(
		mathutil.Max(0, rec.PayingUsersStart-rec.ChurnedUsers+rec.NewPayingUsers), payingCap)
	rec.TotalUsersEnd = rec.PayingUsersEnd + rec.FreeUsersEnd

	rec.MRR = rec.PayingUsersEnd * p.arpu

	rec.OrganicMarketingSpend = p.postsPerMonth * p.orgCostPerPost
	rec.InfluencerMarketingSpend = rec.InfluencerNewPayers * p.infReward
	rec.OtherMarketingSpend = p.otherBudget
	rec.ReferralMarketingSpend = rec.NewPayersFromReferral * p.referralReward
	rec.PaidAdsMarketingSpend = ads.spend()
	rec.TotalMarketingSpend = rec.OrganicMarketingSpend + rec.InfluencerMarketingSpend +
		rec.OtherMarketingSpend + rec.ReferralMarketingSpend + rec.PaidAdsMarketingSpend

	// Variable costs switch on as flat fees at their MRR thresholds and are
	// re-evaluated every month, not latched.
	if rec.MRR >= p.dataSubThreshold {
		rec.DataSubCost = p.dataSubFee
	}
	if rec.MRR >= p.xapiThreshold {
		rec.XAPICost = p.xapiFee
	}
	rec.BaseFixedCost = p.baseFixedCost * math.Pow(1+p.fixedCostAnnualGrowth, float64(rec.Year-1))
	rec.DirectCosts = rec.DataSubCost + rec.XAPICost
	rec.GrossProfit = rec.MRR - rec.DirectCosts
	rec.GrossMarginMonth = mathutil.SafeRatio(rec.GrossProfit, rec.MRR)
	rec.TotalCosts = rec.TotalMarketingSpend + rec.DirectCosts + rec.BaseFixedCost
	rec.NetCashFlow = rec.MRR - rec.TotalCosts
	rec.CumulativeCash = rec.NetCashFlow
	if prev != nil {
		rec.CumulativeCash = prev.CumulativeCash + rec.NetCashFlow
	}

	acc.cumulativeMarketingSpend += rec.TotalMarketingSpend
	acc.cumulativeNewCustomers += rec.NewPayingUsers

	rec.CumulativeCAC = mathutil.SafeRatio(acc.cumulativeMarketingSpend, acc.cumulativeNewCustomers)
	rec.MonthlyCAC = mathutil.SafeRatio(rec.TotalMarketingSpend, rec.NewPayingUsers)

	// LTV from the realized monthly gross margin. With zero churn the
	// customer lifetime is capped at ten years instead of dividing by zero.
	if rec.ChurnRate > 0 {
		rec.MonthlyLTV = p.arpu * rec.GrossMarginMonth / rec.ChurnRate
	} else {
		rec.MonthlyLTV = p.arpu * rec.GrossMarginMonth * constants.ZeroChurnLifetimeMonths
	}
	rec.LTVCACRatio = mathutil.SafeRatio(rec.MonthlyLTV, rec.CumulativeCAC)

	return rec
}
