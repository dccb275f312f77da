package portal

// Lifecycle is a transition table over a status type. Missing records are
// treated as being in the initial status.
type Lifecycle[S ~string] struct {
	name     string
	initial  S
	sources  map[S][]S
	terminal map[S]bool
}

func NewLifecycle[S ~string](name string, initial S) *Lifecycle[S] {
	return &Lifecycle[S]{name: name, initial: initial, sources: map[S][]S{}, terminal: map[S]bool{}}
}

// Allow permits transitions into to from each of from.
func (l *Lifecycle[S]) Allow(to S, from ...S) *Lifecycle[S] {
	l.sources[to] = append(l.sources[to], from...)
	return l
}

// Terminal marks states that accept no further transition.
func (l *Lifecycle[S]) Terminal(states ...S) *Lifecycle[S] {
	for _, s := range states {
		l.terminal[s] = true
	}
	return l
}

func (l *Lifecycle[S]) Name() string { return l.name }
func (l *Lifecycle[S]) Initial() S   { return l.initial }

func (l *Lifecycle[S]) IsTerminal(s S) bool { return l.terminal[s] }

// Sources lists the statuses a transition into to may start from.
func (l *Lifecycle[S]) Sources(to S) []S {
	return append([]S(nil), l.sources[to]...)
}

func (l *Lifecycle[S]) CanTransition(from, to S) bool {
	if from == "" {
		from = l.initial
	}
	if l.terminal[from] {
		return false
	}
	for _, s := range l.sources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// SubmissionLifecycle governs onboarding document submissions.
var SubmissionLifecycle = NewLifecycle("onboarding", StatusNotStarted).
	Allow(StatusDraft, StatusNotStarted, StatusDraft, StatusRejected).
	Allow(StatusSubmitted, StatusNotStarted, StatusDraft, StatusSubmitted, StatusRejected).
	Allow(StatusApproved, StatusSubmitted).
	Allow(StatusRejected, StatusSubmitted).
	Terminal(StatusApproved)

// HRLifecycle governs HR record acknowledgment.
var HRLifecycle = NewLifecycle("hr_acknowledgment", HRPending).
	Allow(HRAcknowledged, HRPending).
	Terminal(HRAcknowledged)

// TrainingLifecycle governs training module completion.
var TrainingLifecycle = NewLifecycle("training", TrainingNotStarted).
	Allow(TrainingInProgress, TrainingNotStarted, TrainingInProgress, TrainingExpired).
	Allow(TrainingCompleted, TrainingNotStarted, TrainingInProgress, TrainingExpired).
	Allow(TrainingExpired, TrainingCompleted)
