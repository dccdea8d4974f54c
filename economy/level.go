// economy/level.go
package economy

const (
	// XPPerLevel is the flat XP span of every level.
	XPPerLevel = 150
	// CreditToXPRatio: every 2 credits spent earn 1 XP.
	CreditToXPRatio = 2
	// PrestigeLevelThreshold is the level at which the first prestige fires.
	PrestigeLevelThreshold = 100
)

// Level maps cumulative XP to a level, starting at 1.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// ProgressPercent is how far xp is into its current level, in [0,100].
func ProgressPercent(xp int64) float64 {
	if xp < 0 {
		xp = 0
	}
	into := xp - int64(Level(xp)-1)*XPPerLevel
	pct := float64(into) / float64(XPPerLevel) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// XPToNextLevel returns the XP still missing before the next level-up.
func XPToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	return int64(Level(xp))*XPPerLevel - xp
}

// CreditsToXP converts spent credits into earned XP.
func CreditsToXP(credits int64) int64 {
	if credits <= 0 {
		return 0
	}
	return credits / CreditToXPRatio
}
