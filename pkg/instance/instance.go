package instance

import "os"

// GetID returns the process instance identifier used in logs, falling back to "local".
func GetID() string {
	for _, key := range []string{"HOSTELHUB_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
