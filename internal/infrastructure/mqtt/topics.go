package mqtt

import "fmt"

// Topic prefixes for the Homelink MQTT namespace.
//
// The mirror publishes under a flat scheme: homelink/{category}/{id}.
const (
	// TopicPrefix is the base for all Homelink topics.
	TopicPrefix = "homelink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homelink/system"
)

// Topics provides builders for Homelink MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// BridgeState returns the topic carrying state deltas for one bridge.
//
// Example: homelink/state/hue-1
func (Topics) BridgeState(bridgeID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, bridgeID)
}

// SystemStatus returns the Core online/offline status topic.
//
// Example: homelink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
