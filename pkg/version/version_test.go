package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	if !strings.HasPrefix(got, "hakim dev\n") {
		t.Errorf("unexpected banner: %q", got)
	}
	if !strings.Contains(got, "commit: none") {
		t.Errorf("banner missing commit: %q", got)
	}
}
