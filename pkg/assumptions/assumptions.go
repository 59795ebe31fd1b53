// Package assumptions implements the named-parameter store that drives a
// simulation run: a mapping from business assumption names (ARPU, ConvVS,
// Market_Max_Followers_Local, ...) to scalar values.
//
// Parameter names are case-insensitive. Every parameter the simulation reads
// has a hard-coded default, so a partial map never fails a run; absent names
// silently fall back. Values are immutable for the duration of a run.
package assumptions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Store holds resolved assumption values keyed by normalized parameter name.
type Store struct {
	values map[string]float64
}

// New constructs a Store from already-coerced values.
func New(values map[string]float64) *Store {
	s := &Store{values: make(map[string]float64, len(values))}
	for name, value := range values {
		s.values[normalize(name)] = value
	}
	return s
}

// FromRaw coerces a raw scalar map (as decoded from YAML, HJSON, or JSON)
// into a Store. Deprecated parameters are stripped and unknown parameters
// kept, both reported through the returned warnings. A value that cannot be
// interpreted as a number fails with an error naming the parameter; nil and
// empty values coerce to zero.
func FromRaw(raw map[string]interface{}) (*Store, []string, error) {
	s := &Store{values: make(map[string]float64, len(raw))}
	var warnings []string

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := normalize(name)
		if canonical, ok := deprecated[key]; ok {
			warnings = append(warnings, fmt.Sprintf(
				"ignoring deprecated parameter %s: its value is computed dynamically", canonical))
			continue
		}
		value, err := coerceFloat(raw[name])
		if err != nil {
			return nil, warnings, fmt.Errorf("assumption %s: %w", name, err)
		}
		if _, known := knownNames[key]; !known {
			warnings = append(warnings, fmt.Sprintf(
				"unknown parameter %s is not used by the simulation", name))
		}
		s.values[key] = value
	}

	return s, warnings, nil
}

// Get returns the value for name, or def when the name is absent.
// No validation and no side effects.
func (s *Store) Get(name string, def float64) float64 {
	if s == nil {
		return def
	}
	if value, ok := s.values[normalize(name)]; ok {
		return value
	}
	return def
}

// Merge returns a new Store with overlay values replacing base values.
// Either side may be nil.
func (s *Store) Merge(overlay *Store) *Store {
	merged := &Store{values: make(map[string]float64)}
	if s != nil {
		for name, value := range s.values {
			merged.values[name] = value
		}
	}
	if overlay != nil {
		for name, value := range overlay.values {
			merged.values[name] = value
		}
	}
	return merged
}

// Raw returns a copy of the stored values keyed by normalized name,
// suitable for snapshotting alongside persisted runs.
func (s *Store) Raw() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for name, value := range s.values {
		out[name] = value
	}
	return out
}

// Len reports how many parameters the store holds.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Defaults returns the full default table keyed by canonical parameter name.
func Defaults() map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for name, value := range defaults {
		out[name] = value
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func coerceFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as a number", v.String())
		}
		return parsed, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as a number", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}

// defaults holds the canonical default for every parameter the simulation
// reads. Alias parameters (ChurnY1 through ChurnY3, Other_Marketing_Budget_Y1)
// are resolved by the engine and carry no default of their own.
var defaults = map[string]float64{
	"ARPU":                                    20,
	"ConvVS":                                  0.13,
	"ConvSP":                                  0.035,
	"Churn_Rate":                              0.06,
	"Market_Max_Followers_Local":              50000,
	"Market_Max_Followers_Global":             1000000,
	"Market_Max_PayingUsers_Local":            2000,
	"Market_Max_PayingUsers_Global":           25000,
	"Follower_Adoption_Ramp_Months":           24,
	"Global_Adoption_Ramp_Months":             12,
	"Followers_0":                             1000,
	"Follower_Monthly_Growth":                 0.08,
	"Posts_per_Month_Y1":                      120,
	"Reach_per_Post":                          0.04,
	"NonFollower_Reach_Multiplier":            0.5,
	"Frequency_Impressions_per_User":          1.5,
	"Organic_CTR_to_Site":                     0.015,
	"Inf_Avg_Followers":                       50000,
	"Inf_Reach_Rate":                          0.3,
	"Inf_Click_Rate":                          0.02,
	"Inf_Collabs_Y1":                          1,
	"Influencer_Reward_per_Sub":               10,
	"Referral_Monthly_Rate":                   0.02,
	"Referral_Reward_per_Sub":                 10,
	"Existing_Free_to_Paid_Monthly_Conv_Rate": 0.0075,
	"Free_Active_Share":                       0.5,
	"Org_Cost_per_Post":                       1,
	"Other_Marketing_Budget":                  200,
	"BaseFixedCost":                           1000,
	"FixedCost_Annual_Growth":                 0.05,
	"DataSub_Fee":                             2000,
	"DataSub_MRR_Threshold":                   5000,
	"XAPI_Fee":                                5000,
	"XAPI_MRR_Threshold":                      15000,
	"PaidAds_Monthly_Budget":                  500,
	"PaidAds_Max_Annual_Budget":               0,
	"PaidAds_Max_Total_Budget":                0,
	"FollowerAds_CPM_EUR":                     7,
	"FollowerAds_Reach_to_Follower_Rate":      0.1,
	"FollowerAds_CTR_to_Site":                 0.01,
	"ClickAds_CPC_EUR":                        2.0,
	"Follower_Threshold_For_Click_Ads":        20000,
}

// aliasNames are accepted parameters that carry no default of their own:
// fallback spellings for renamed parameters, plus the per-year churn slots
// that default to the unified Churn_Rate when absent.
var aliasNames = []string{
	"ChurnY1",
	"ChurnY2",
	"ChurnY3",
	"Other_Marketing_Budget_Y1",
}

// deprecated parameters are always computed dynamically and may never be
// supplied as inputs.
var deprecated = map[string]string{
	"grossmargin":             "GrossMargin",
	"inf_visitors_per_collab": "Inf_Visitors_per_Collab",
}

// knownNames indexes every accepted parameter by normalized name.
var knownNames = func() map[string]struct{} {
	known := make(map[string]struct{}, len(defaults)+len(aliasNames))
	for name := range defaults {
		known[normalize(name)] = struct{}{}
	}
	for _, name := range aliasNames {
		known[normalize(name)] = struct{}{}
	}
	return known
}()
