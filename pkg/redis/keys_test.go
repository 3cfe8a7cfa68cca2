package redis

import "testing"

func TestAnchorTableKey(t *testing.T) {
	if got := AnchorTableKey("default"); got != "gamma:anchors:default" {
		t.Errorf("Expected gamma:anchors:default, got %s", got)
	}
}
