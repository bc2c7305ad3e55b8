package mastery

// Placement levels.
const (
	LevelBeginner     = 1
	LevelIntermediate = 2
	LevelAdvanced     = 3
)

var placementLevels = map[string]int{
	"BEGINNER":     LevelBeginner,
	"INTERMEDIATE": LevelIntermediate,
	"ADVANCED":     LevelAdvanced,
}

// LevelFromPlacement maps a placement result to a level, or def when the
// result is unknown.
func LevelFromPlacement(result string, def int) int {
	if l, ok := placementLevels[result]; ok {
		return l
	}
	return def
}

// Badge is the display form of a level.
type Badge struct {
	Emoji string `json:"emoji"`
	Name  string `json:"level_name"`
}

func (b Badge) String() string { return b.Emoji + " " + b.Name }

var badges = map[int]Badge{
	LevelBeginner:     {"🌱", "씨앗"},
	LevelIntermediate: {"🌿", "새싹"},
	LevelAdvanced:     {"🌸", "꽃"},
}

// BadgeFor returns the badge of level; unknown levels show as a seed.
func BadgeFor(level int) Badge {
	if b, ok := badges[level]; ok {
		return b
	}
	return badges[LevelBeginner]
}
