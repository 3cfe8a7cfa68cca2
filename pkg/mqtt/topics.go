package mqtt

// topicGammaContextPrefix is shared by every display's gamma context topic
const topicGammaContextPrefix = "automation/context/gamma/"

// GammaContextTopic constructs the context topic for a display location
// Pattern: automation/context/gamma/{location}
func GammaContextTopic(location string) string {
	return topicGammaContextPrefix + location
}
