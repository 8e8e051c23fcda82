package statsync

// StatContext is one contextual dimension scoping which stat values
// currently apply, e.g. a game mode.
type StatContext struct {
	Name  string `json:"dimensionName"`
	Value string `json:"dimensionValue"`
}

// ChangeKind tags the two mutation variants recorded in the pending log.
type ChangeKind int

const (
	ChangeStat ChangeKind = iota
	ChangeContexts
)

// PendingChange is one buffered, not-yet-acknowledged local mutation.
// A change is immutable once appended; the log is cleared only by
// CommitFlush or DiscardPending.
type PendingChange struct {
	Kind     ChangeKind
	Stat     StatValue
	Compare  CompareType
	Contexts []StatContext
}

func statChange(stat StatValue, compare CompareType) PendingChange {
	return PendingChange{Kind: ChangeStat, Stat: stat, Compare: compare}
}

func contextChange(contexts []StatContext) PendingChange {
	return PendingChange{Kind: ChangeContexts, Contexts: cloneContexts(contexts)}
}

func cloneContexts(contexts []StatContext) []StatContext {
	out := make([]StatContext, len(contexts))
	copy(out, contexts)
	return out
}
