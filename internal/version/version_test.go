package version

import "testing"

func withBuild(t *testing.T, v, commit, dirty string) {
	t.Helper()
	pv, pc, pd := Version, Commit, Dirty
	Version, Commit, Dirty = v, commit, dirty
	t.Cleanup(func() { Version, Commit, Dirty = pv, pc, pd })
}

func TestResolve(t *testing.T) {
	withBuild(t, "", "", "")
	if got := Resolve(""); got != Fallback {
		t.Fatalf("expected fallback %q, got %q", Fallback, got)
	}
	if got := Resolve("2.3.4"); got != "2.3.4" {
		t.Fatalf("expected override, got %q", got)
	}

	withBuild(t, "", "abc1234", "dirty")
	if got := Resolve(""); got != "dev-abc1234*" {
		t.Fatalf("expected dirty dev version, got %q", got)
	}

	withBuild(t, "v1.0.1", "abc1234", "clean")
	if got := Resolve(""); got != "v1.0.1" {
		t.Fatalf("expected release tag, got %q", got)
	}
}
