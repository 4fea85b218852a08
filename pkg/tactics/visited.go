package tactics

// VisitedSet holds the positions already explored during one game replay.
// It only grows: there is no way to remove a position once added.
type VisitedSet struct {
	keys map[string]struct{}
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{keys: make(map[string]struct{})}
}

// Contains reports whether the position has been explored
func (v *VisitedSet) Contains(fen string) bool {
	_, ok := v.keys[PositionKey(fen)]

	return ok
}

// Add records one position and reports whether it was new
func (v *VisitedSet) Add(fen string) bool {
	key := PositionKey(fen)
	if _, ok := v.keys[key]; ok {
		return false
	}

	v.keys[key] = struct{}{}

	return true
}

// Union adds every position in fens and returns how many were new
func (v *VisitedSet) Union(fens []string) int {
	added := 0

	for _, fen := range fens {
		if v.Add(fen) {
			added++
		}
	}

	return added
}

// Len returns the number of distinct positions
func (v *VisitedSet) Len() int {
	return len(v.keys)
}
