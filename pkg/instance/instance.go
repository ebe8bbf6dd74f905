package instance

import "github.com/angelmondragon/events-aggregator/pkg/env"

// GetID returns the identifier of this replica for log correlation. It
// prefers AGGREGATOR_INSTANCE_ID, then the container hostname.
func GetID() string {
	return env.First("local", "AGGREGATOR_INSTANCE_ID", "HOSTNAME")
}
