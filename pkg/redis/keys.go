package redis

import "fmt"

// AnchorTableKey returns the key holding an anchor table as directive text
// Pattern: gamma:anchors:{profile}
func AnchorTableKey(profile string) string {
	return fmt.Sprintf("gamma:anchors:%s", profile)
}
