// economy/prestige.go
package economy

import "strings"

// PrestigeRank is stamped on an account when it resets at the level ceiling.
type PrestigeRank string

const (
	PrestigeSilver  PrestigeRank = "silver"
	PrestigeGold    PrestigeRank = "gold"
	PrestigeDiamond PrestigeRank = "diamond"
)

var prestigeOrder = map[PrestigeRank]int{
	PrestigeSilver:  1,
	PrestigeGold:    2,
	PrestigeDiamond: 3,
}

// ParsePrestigeRank validates s against silver/gold/diamond.
func ParsePrestigeRank(s string) (PrestigeRank, error) {
	r := PrestigeRank(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := prestigeOrder[r]; !ok {
		return "", ErrUnknownPrestige
	}
	return r, nil
}

// ShouldAutoPrestige: level ceiling reached and no rank held yet. Only the
// first prestige (silver) is automatic.
func ShouldAutoPrestige(xp int64, current *PrestigeRank) bool {
	return current == nil && Level(xp) >= PrestigeLevelThreshold
}

// CanAdvance reports whether an account at current may move to next.
// Ranks only ever move upward.
func CanAdvance(current *PrestigeRank, next PrestigeRank) bool {
	target, ok := prestigeOrder[next]
	if !ok {
		return false
	}
	if current == nil {
		return true
	}
	return target > prestigeOrder[*current]
}
