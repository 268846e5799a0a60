package domain

import "testing"

func TestCanAccess(t *testing.T) {
	preview := Lecture{IsPreviewFree: true}
	paid := Lecture{}

	for _, v := range []ViewerState{ViewerAnonymous, ViewerAuthenticated, ViewerEnrolled} {
		if !CanAccess(preview, v) {
			t.Fatalf("preview lecture must be accessible to %s viewer", v)
		}
	}
	if CanAccess(paid, ViewerAnonymous) {
		t.Fatalf("paid lecture must not be accessible anonymously")
	}
	if CanAccess(paid, ViewerAuthenticated) {
		t.Fatalf("paid lecture must not be accessible to unenrolled viewer")
	}
	if !CanAccess(paid, ViewerEnrolled) {
		t.Fatalf("paid lecture must be accessible once enrolled")
	}
}

func TestResolveViewer(t *testing.T) {
	if ResolveViewer("", true) != ViewerAnonymous {
		t.Fatalf("no identity means anonymous")
	}
	if ResolveViewer("stu-1", false) != ViewerAuthenticated {
		t.Fatalf("expected authenticated")
	}
	if ResolveViewer("stu-1", true) != ViewerEnrolled {
		t.Fatalf("expected enrolled")
	}
}
