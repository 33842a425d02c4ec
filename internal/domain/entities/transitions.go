package entities

// transitions is the forward-only lifecycle graph. Re-review out of
// published is deliberately absent; it goes through ReReviewFrom.
var transitions = map[ClaimStatus][]ClaimStatus{
	StatusPending:       {StatusAIProcessing, StatusRejected},
	StatusAIProcessing:  {StatusAIApproved, StatusHumanReview, StatusPending, StatusRejected},
	StatusAIApproved:    {StatusHumanReview, StatusUnderReview, StatusHumanApproved, StatusRejected},
	StatusHumanReview:   {StatusUnderReview, StatusHumanApproved, StatusRejected},
	StatusUnderReview:   {StatusHumanReview, StatusHumanApproved, StatusRejected},
	StatusHumanApproved: {StatusPublished, StatusRejected},
	StatusPublished:     {},
	StatusRejected:      {},
}

// ReviewableStatuses are the states a human verdict may be finalized from.
var ReviewableStatuses = []ClaimStatus{StatusAIApproved, StatusHumanReview, StatusUnderReview}

// ReprocessableStatuses may re-enter AI processing, but only when forced.
var ReprocessableStatuses = []ClaimStatus{StatusAIApproved, StatusHumanReview}

// ReReviewFrom is the only state an explicit re-review may start from.
const ReReviewFrom = StatusPublished

// CanTransitionTo reports whether next is a legal successor of s.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no ordinary transition leaves s.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// In reports whether s is one of the given states.
func (s ClaimStatus) In(states ...ClaimStatus) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}

// PrePublicationStatuses are all non-terminal states; a claim in any of them
// may still be rejected.
func PrePublicationStatuses() []ClaimStatus {
	out := make([]ClaimStatus, 0, len(AllStatuses))
	for _, st := range AllStatuses {
		if !st.IsTerminal() {
			out = append(out, st)
		}
	}
	return out
}

// SourcesFor returns every state that may legally move to target.
func SourcesFor(target ClaimStatus) []ClaimStatus {
	var out []ClaimStatus
	for _, from := range AllStatuses {
		if from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}
