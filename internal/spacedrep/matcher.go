package spacedrep

// ConceptMatcher decides whether a newly missed concept is the same as one
// the student already reviews. It returns the existing name on a match.
type ConceptMatcher interface {
	Match(concept string, existing []string) (string, bool)
}

// ExactMatcher matches identical, case-sensitive concept names.
type ExactMatcher struct{}

func (ExactMatcher) Match(concept string, existing []string) (string, bool) {
	for _, name := range existing {
		if name == concept {
			return name, true
		}
	}
	return "", false
}
