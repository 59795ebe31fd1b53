package forecast

import (
	"github.com/growthlab/growth-forecast/pkg/constants"
	"github.com/growthlab/growth-forecast/pkg/mathutil"
)

// aggregateYears reduces the monthly table into per-year summaries. Months
// are partitioned by their Year field and empty partitions are skipped, so a
// monthly table that does not cover whole years still aggregates cleanly.
func aggregateYears(monthly []MonthRecord, p modelParams) []YearRecord {
	if len(monthly) == 0 {
		return nil
	}

	lastYear := monthly[len(monthly)-1].Year
	yearly := make([]YearRecord, 0, lastYear)
	for year := 1; year <= lastYear; year++ {
		var months []MonthRecord
		for _, m := range monthly {
			if m.Year == year {
				months = append(months, m)
			}
		}
		if len(months) == 0 {
			continue
		}
		yearly = append(yearly, aggregateYear(year, months, p))
	}
	return yearly
}

// aggregateYear computes one YearRecord from the months of a single year.
// The yearly LTV uses the gross margin realized over the year rather than a
// configured margin, and unlike the monthly LTV it has no zero-churn
// lifetime fallback: zero churn yields zero yearly LTV.
func aggregateYear(year int, months []MonthRecord, p modelParams) YearRecord {
	last := months[len(months)-1]

	rec := YearRecord{
		Year:                    year,
		EndPayingUsers:          last.PayingUsersEnd,
		EndMRR:                  last.MRR,
		ARR:                     last.MRR * constants.MonthsPerYear,
		EndFollowers:            last.FollowersEnd,
		CumulativeCashEndOfYear: last.CumulativeCash,
		AssumedMonthlyChurn:     p.churnForYear(year),
	}

	for _, m := range months {
		rec.TotalNewCustomers += m.NewPayingUsers
		rec.NewPayersFromNewSignups += m.NewPayersFromNewSignups
		rec.NewPayersFromExistingFree += m.NewPayersFromExistingFree
		rec.NewPayersFromReferral += m.NewPayersFromReferral
		rec.OrganicNewPayers += m.OrganicNewPayers
		rec.InfluencerNewPayers += m.InfluencerNewPayers
		rec.OtherNewPayers += m.OtherNewPayers
		rec.PaidAdsNewPayers += m.PaidAdsNewPayers

		rec.OrganicMarketingSpend += m.OrganicMarketingSpend
		rec.InfluencerMarketingSpend += m.InfluencerMarketingSpend
		rec.OtherMarketingSpend += m.OtherMarketingSpend
		rec.ReferralMarketingSpend += m.ReferralMarketingSpend
		rec.PaidAdsMarketingSpend += m.PaidAdsMarketingSpend

		rec.RevenueYear += m.MRR
		rec.GrossProfitYear += m.GrossProfit

		rec.TotalOrganicVisitors += m.OrganicVisitors
		rec.TotalInfluencerVisitors += m.InfluencerVisitors
		rec.TotalOtherVisitors += m.OtherVisitors
		rec.TotalVisitors += m.VisitorsTotal
		rec.TotalSocialViews += m.SocialViews
	}

	rec.TotalMarketingSpend = rec.OrganicMarketingSpend + rec.InfluencerMarketingSpend +
		rec.OtherMarketingSpend + rec.ReferralMarketingSpend + rec.PaidAdsMarketingSpend
	rec.AverageCAC = mathutil.SafeRatio(rec.TotalMarketingSpend, rec.TotalNewCustomers)
	rec.GrossMarginYear = mathutil.SafeRatio(rec.GrossProfitYear, rec.RevenueYear)
	if rec.AssumedMonthlyChurn > 0 {
		rec.LTV = p.arpu * rec.GrossMarginYear / rec.AssumedMonthlyChurn
	}
	rec.LTVCACRatio = mathutil.SafeRatio(rec.LTV, rec.AverageCAC)
	rec.ShareOrganicVisitors = mathutil.SafeRatio(rec.TotalOrganicVisitors, rec.TotalVisitors)
	rec.ShareInfluencerVisitors = mathutil.SafeRatio(rec.TotalInfluencerVisitors, rec.TotalVisitors)
	rec.ShareOtherVisitors = mathutil.SafeRatio(rec.TotalOtherVisitors, rec.TotalVisitors)

	return rec
}
