package domain

// Tier is the qualitative effectiveness band of an AHI hit rate.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierModerate  Tier = "moderate"
	TierLow       Tier = "low"
	TierUndefined Tier = "undefined"
)

// Interpretation band lower bounds, in percent.
const (
	excellentFloor = 80.0
	goodFloor      = 60.0
	moderateFloor  = 40.0
)

// ClassifyHitRate maps a hit-rate percentage onto a tier. A zero-denominator
// interval never reaches here; see NewEffectiveness.
func ClassifyHitRate(pct float64) Tier {
	switch {
	case pct >= excellentFloor:
		return TierExcellent
	case pct >= goodFloor:
		return TierGood
	case pct >= moderateFloor:
		return TierModerate
	default:
		return TierLow
	}
}

// Advice is the operator guidance attached to each tier.
func (t Tier) Advice() string {
	switch t {
	case TierExcellent:
		return "AHI is highly effective for this workload; keep it enabled."
	case TierGood:
		return "AHI is providing benefit; keep monitoring over time."
	case TierModerate:
		return "AHI provides some benefit but may not be optimal; consider testing with it disabled."
	case TierLow:
		return "AHI is not providing significant benefit; consider SET GLOBAL innodb_adaptive_hash_index = OFF."
	case TierUndefined:
		return "No index searches in this window; hit rate is undefined."
	}
	return ""
}

// Effectiveness is a hit rate with its tier. HitRate is nil when no searches
// happened, so an idle window is never shown as 0%.
type Effectiveness struct {
	AHISearches   int64    `json:"ahi_searches" yaml:"ahi_searches"`
	BtreeSearches int64    `json:"btree_searches" yaml:"btree_searches"`
	HitRate       *float64 `json:"hit_rate_pct" yaml:"hit_rate_pct"`
	Tier          Tier     `json:"tier" yaml:"tier"`
}

// NewEffectiveness computes ahi / (ahi + btree) as a percentage.
func NewEffectiveness(ahiSearches, btreeSearches int64) Effectiveness {
	e := Effectiveness{AHISearches: ahiSearches, BtreeSearches: btreeSearches, Tier: TierUndefined}
	total := ahiSearches + btreeSearches
	if total <= 0 {
		return e
	}
	pct := 100 * float64(ahiSearches) / float64(total)
	e.HitRate = &pct
	e.Tier = ClassifyHitRate(pct)
	return e
}
