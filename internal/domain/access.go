package domain

type ViewerState int

const (
	ViewerAnonymous ViewerState = iota
	ViewerAuthenticated
	ViewerEnrolled
)

func (v ViewerState) String() string {
	switch v {
	case ViewerAuthenticated:
		return "authenticated"
	case ViewerEnrolled:
		return "enrolled"
	default:
		return "anonymous"
	}
}

// ResolveViewer derives the viewer state for one course from the identity
// and ledger membership. Payment state is never consulted here.
func ResolveViewer(studentID string, enrolled bool) ViewerState {
	switch {
	case studentID == "":
		return ViewerAnonymous
	case enrolled:
		return ViewerEnrolled
	default:
		return ViewerAuthenticated
	}
}

// CanAccess decides whether the lecture media may be handed to the viewer.
func CanAccess(l Lecture, viewer ViewerState) bool {
	if l.IsPreviewFree {
		return true
	}
	return viewer == ViewerEnrolled
}
