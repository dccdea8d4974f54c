// economy/badges.go
package economy

// BadgeDef is a catalog entry. Badges are granted at most once per user.
type BadgeDef struct {
	ID          string
	Name        string
	Description string
	XPReward    int64
	Rarity      string // common, rare, epic, legendary
}

// LevelBadge awards BadgeID once an account reaches Level.
type LevelBadge struct {
	Level   int
	BadgeID string
}

// LevelBadges is checked in order after every XP change.
var LevelBadges = []LevelBadge{
	{Level: 5, BadgeID: "level-5"},
	{Level: 10, BadgeID: "level-10"},
	{Level: 25, BadgeID: "level-25"},
	{Level: 50, BadgeID: "level-50"},
	{Level: 100, BadgeID: "level-100"},
}

// Milestone badges granted by account events rather than by level.
const (
	BadgeWelcome         = "welcome"
	BadgeFirstGift       = "first-gift"
	BadgeSocialButterfly = "social-butterfly"
)

// DefaultBadges seeds the catalog on migrate.
var DefaultBadges = []BadgeDef{
	{ID: BadgeWelcome, Name: "Welcome Aboard", Description: "Created an AgentGift account", XPReward: 10, Rarity: "common"},
	{ID: BadgeFirstGift, Name: "First Gift", Description: "Asked the agent for a first recommendation", XPReward: 25, Rarity: "common"},
	{ID: BadgeSocialButterfly, Name: "Social Butterfly", Description: "Shared a verified gift post", XPReward: 50, Rarity: "rare"},
	{ID: "level-5", Name: "Gift Scout", Description: "Reached level 5", XPReward: 50, Rarity: "common"},
	{ID: "level-10", Name: "Gift Ranger", Description: "Reached level 10", XPReward: 100, Rarity: "rare"},
	{ID: "level-25", Name: "Gift Sage", Description: "Reached level 25", XPReward: 250, Rarity: "epic"},
	{ID: "level-50", Name: "Gift Oracle", Description: "Reached level 50", XPReward: 500, Rarity: "epic"},
	{ID: "level-100", Name: "Giftverse Legend", Description: "Reached level 100", XPReward: 1000, Rarity: "legendary"},
}

// BadgesForLevel lists the level badges an account at level qualifies for.
func BadgesForLevel(level int) []string {
	var ids []string
	for _, lb := range LevelBadges {
		if level >= lb.Level {
			ids = append(ids, lb.BadgeID)
		}
	}
	return ids
}
