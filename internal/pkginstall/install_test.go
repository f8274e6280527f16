package pkginstall

import "testing"

func TestSplitVersion(t *testing.T) {
	repo, version := splitVersion("github.com/estevaofon/noxy-plugin-dynamodb@v1.2.0")
	if repo != "github.com/estevaofon/noxy-plugin-dynamodb" || version != "v1.2.0" {
		t.Fatalf("got repo=%q version=%q", repo, version)
	}

	repo, version = splitVersion("github.com/estevaofon/noxy-plugin-dynamodb")
	if repo != "github.com/estevaofon/noxy-plugin-dynamodb" || version != "" {
		t.Fatalf("got repo=%q version=%q", repo, version)
	}
}

func TestWithScheme(t *testing.T) {
	if got := withScheme("github.com/a/b"); got != "https://github.com/a/b" {
		t.Fatalf("got %q", got)
	}
	if got := withScheme("https://github.com/a/b"); got != "https://github.com/a/b" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalPathFor(t *testing.T) {
	got := localPathFor("github.com/a/b")
	want := "github_com/a/b"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
