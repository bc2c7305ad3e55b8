package drill

import (
	"github.com/rebootlabs/mastery/internal/spacedrep"
)

// cardsLoadedMsg carries the due cards fetched at start.
type cardsLoadedMsg struct {
	Cards []spacedrep.DueCard
	Err   error
}

// answeredMsg carries the graded answer of the current card.
type answeredMsg struct {
	Answer string
	Result spacedrep.AttemptResult
	Err    error
}
