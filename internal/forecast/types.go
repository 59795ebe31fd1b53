package forecast

// MonthRecord is one simulation tick. Start fields are copied verbatim from
// the previous month's end fields (or from the configured seeds in month 1);
// a record is never mutated once produced. JSON field names match the
// historical spreadsheet column names so exports stay compatible with
// existing dashboards.
type MonthRecord struct {
	Year  int `json:"Year"`
	Month int `json:"Month"`

	// Follower cohort and market phase.
	FollowersStart      float64 `json:"Followers_Start"`
	FollowersEnd        float64 `json:"Followers_End"`
	MarketPhase         string  `json:"Market_Phase"`
	MarketSaturationPct float64 `json:"Market_Saturation_Pct"`
	AdsSaturationFactor float64 `json:"Ads_Saturation_Factor"`

	// Organic social funnel.
	Posts                  float64 `json:"Posts"`
	FollowerImpressions    float64 `json:"Impr_Followers"`
	NonFollowerImpressions float64 `json:"Impr_NonFollowers"`
	SocialViews            float64 `json:"Social_Views"`
	NewUniqueNonFollowers  float64 `json:"NewUnique_NonFollowers"`
	OrganicVisitors        float64 `json:"Org_Visitors"`
	InfluencerVisitors     float64 `json:"Inf_Visitors"`
	OtherVisitors          float64 `json:"Other_Visitors"`

	// Paid ads.
	FollowerAdsSpend        float64 `json:"FollowerAds_Spend"`
	ClickAdsSpend           float64 `json:"ClickAds_Spend"`
	AnnualPaidAdsSpend      float64 `json:"Annual_PaidAds_Spend"`
	CumulativePaidAdsSpend  float64 `json:"Cumulative_PaidAds_Spend"`
	FollowerAdsImpressions  float64 `json:"Paid_FollowerAds_Impressions"`
	FollowerAdsReach        float64 `json:"Paid_FollowerAds_Reach"`
	FollowerAdsNewFollowers float64 `json:"Paid_FollowerAds_NewFollowers"`
	FollowerAdsVisitors     float64 `json:"Paid_FollowerAds_Visitors"`
	ClickAdsVisitors        float64 `json:"Paid_ClickAds_Visitors"`
	PaidAdsVisitors         float64 `json:"PaidAds_Visitors"`

	// Signups.
	VisitorsTotal     float64 `json:"Visitors_Total"`
	Signups           float64 `json:"Signups"`
	OrganicSignups    float64 `json:"Org_Signups"`
	InfluencerSignups float64 `json:"Inf_Signups"`
	OtherSignups      float64 `json:"Other_Signups"`
	PaidAdsSignups    float64 `json:"PaidAds_Signups"`

	// New paying users by source and by channel.
	NewPayersFromNewSignups   float64 `json:"New_Payers_from_New_Signups"`
	NewPayersFromExistingFree float64 `json:"New_Payers_from_Existing_Free"`
	NewPayersFromReferral     float64 `json:"New_Payers_from_Referral"`
	OrganicNewPayers          float64 `json:"Org_New_Payers"`
	InfluencerNewPayers       float64 `json:"Inf_New_Payers"`
	OtherNewPayers            float64 `json:"Other_New_Payers"`
	PaidAdsNewPayers          float64 `json:"PaidAds_New_Payers"`
	NewPayingUsers            float64 `json:"New_Paying_Users"`

	// Paying and free user cohorts.
	ChurnRate         float64 `json:"Churn_Rate"`
	PayingUsersStart  float64 `json:"Paying_Users_Start"`
	ChurnedUsers      float64 `json:"Churned_Users"`
	PayingUsersEnd    float64 `json:"Paying_Users_End"`
	CumulativeSignups float64 `json:"Cumulative_Signups"`
	FreeUsersStart    float64 `json:"Free_Users_Start"`
	FreeActiveUsers   float64 `json:"Free_Active_Users"`
	FreeUsersEnd      float64 `json:"Free_Users_End"`
	TotalUsersEnd     float64 `json:"Total_Users_End"`

	// Revenue and costs.
	ARPU                     float64 `json:"ARPU"`
	MRR                      float64 `json:"MRR"`
	OrganicMarketingSpend    float64 `json:"Org_Marketing_Spend"`
	InfluencerMarketingSpend float64 `json:"Inf_Marketing_Spend"`
	OtherMarketingSpend      float64 `json:"Other_Marketing_Spend"`
	ReferralMarketingSpend   float64 `json:"Referral_Marketing_Spend"`
	PaidAdsMarketingSpend    float64 `json:"PaidAds_Marketing_Spend"`
	TotalMarketingSpend      float64 `json:"Total_Marketing_Spend"`
	DirectCosts              float64 `json:"Direct_Costs"`
	GrossProfit              float64 `json:"Gross_Profit"`
	GrossMarginMonth         float64 `json:"Gross_Margin_Month"`
	DataSubCost              float64 `json:"DataSub_Cost"`
	XAPICost                 float64 `json:"XAPI_Cost"`
	BaseFixedCost            float64 `json:"Base_Fixed_Cost"`
	TotalCosts               float64 `json:"Total_Costs"`
	NetCashFlow              float64 `json:"Net_Cash_Flow"`
	CumulativeCash           float64 `json:"Cumulative_Cash"`

	// Rolling unit economics.
	MonthlyCAC    float64 `json:"Monthly_CAC"`
	CumulativeCAC float64 `json:"Cumulative_CAC"`
	MonthlyLTV    float64 `json:"Monthly_LTV"`
	LTVCACRatio   float64 `json:"LTV_CAC_Ratio"`
}

// YearRecord aggregates one calendar year of the monthly table: end-of-year
// snapshots, per-year sums, and the derived yearly unit economics. The yearly
// LTV uses the gross margin realized over the year, not a fixed assumption.
type YearRecord struct {
	Year int `json:"Year"`

	EndPayingUsers float64 `json:"End_Paying_Users"`
	EndMRR         float64 `json:"End_MRR_EUR"`
	ARR            float64 `json:"ARR_EUR"`
	EndFollowers   float64 `json:"End_Followers"`

	TotalNewCustomers         float64 `json:"Total_New_Customers"`
	NewPayersFromNewSignups   float64 `json:"New_Payers_from_New_Signups"`
	NewPayersFromExistingFree float64 `json:"New_Payers_from_Existing_Free"`
	NewPayersFromReferral     float64 `json:"New_Payers_from_Referral"`
	OrganicNewPayers          float64 `json:"Org_New_Payers"`
	InfluencerNewPayers       float64 `json:"Inf_New_Payers"`
	OtherNewPayers            float64 `json:"Other_New_Payers"`
	PaidAdsNewPayers          float64 `json:"PaidAds_New_Payers"`

	OrganicMarketingSpend    float64 `json:"Org_Marketing_Spend_EUR"`
	InfluencerMarketingSpend float64 `json:"Inf_Marketing_Spend_EUR"`
	OtherMarketingSpend      float64 `json:"Other_Marketing_Spend_EUR"`
	ReferralMarketingSpend   float64 `json:"Referral_Marketing_Spend_EUR"`
	PaidAdsMarketingSpend    float64 `json:"PaidAds_Marketing_Spend_EUR"`
	TotalMarketingSpend      float64 `json:"Total_Marketing_Spend_EUR"`

	AverageCAC          float64 `json:"Average_CAC_EUR"`
	AssumedMonthlyChurn float64 `json:"Assumed_Monthly_Churn"`
	RevenueYear         float64 `json:"Revenue_Year"`
	GrossProfitYear     float64 `json:"Gross_Profit_Year"`
	GrossMarginYear     float64 `json:"Gross_Margin_Year"`
	LTV                 float64 `json:"LTV_EUR"`
	LTVCACRatio         float64 `json:"LTV_CAC_Ratio"`

	CumulativeCashEndOfYear float64 `json:"Cumulative_Cash_EndOfYear"`

	TotalOrganicVisitors    float64 `json:"Total_Org_Visitors"`
	TotalInfluencerVisitors float64 `json:"Total_Inf_Visitors"`
	TotalOtherVisitors      float64 `json:"Total_Other_Visitors"`
	TotalVisitors           float64 `json:"Total_Visitors"`
	ShareOrganicVisitors    float64 `json:"Share_Org_Visitors"`
	ShareInfluencerVisitors float64 `json:"Share_Inf_Visitors"`
	ShareOtherVisitors      float64 `json:"Share_Other_Visitors"`
	TotalSocialViews        float64 `json:"Total_Social_Views"`
}

// Projection is the output of a single simulation run.
type Projection struct {
	Monthly []MonthRecord `json:"monthly"`
	Yearly  []YearRecord  `json:"yearly"`
}

// Forecast holds the projection computed for one scenario.
type Forecast struct {
	Name    string        `json:"name"`
	Monthly []MonthRecord `json:"monthly"`
	Yearly  []YearRecord  `json:"yearly"`
}
