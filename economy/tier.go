// economy/tier.go
package economy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is a subscription level. The set is closed and totally ordered.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierPro        Tier = "pro"
	TierElite      Tier = "elite"
	TierBusiness   Tier = "business"
	TierEnterprise Tier = "enterprise"
)

// TierOrder lists every tier from least to most privileged.
var TierOrder = []Tier{TierFree, TierPremium, TierPro, TierElite, TierBusiness, TierEnterprise}

var tierRanks = map[Tier]int{
	TierFree:       0,
	TierPremium:    1,
	TierPro:        2,
	TierElite:      3,
	TierBusiness:   4,
	TierEnterprise: 5,
}

func normalizeTier(s string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(s)))
}

// Rank returns the position of tier in TierOrder. Unknown tiers rank 0 so
// they get the most restrictive treatment instead of an error.
func Rank(tier string) int {
	return tierRanks[normalizeTier(tier)]
}

// HasAccess reports whether userTier is at least as privileged as requiredTier.
func HasAccess(userTier, requiredTier string) bool {
	return Rank(userTier) >= Rank(requiredTier)
}

// ParseTier validates s against the closed tier set.
func ParseTier(s string) (Tier, bool) {
	t := normalizeTier(s)
	_, ok := tierRanks[t]
	return t, ok
}

// DisplayName is the tier as shown in upsell messages ("Premium").
// A cases.Caser keeps state, so each call builds its own.
func (t Tier) DisplayName() string {
	return cases.Title(language.English).String(string(t))
}

func (t Tier) String() string { return string(t) }
