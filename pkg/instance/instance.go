package instance

import (
	"os"

	"github.com/angelmondragon/adspace-backend/pkg/config"
)

// GetID identifies this process in logs. ADSPACE_INSTANCE_ID wins over the hostname.
func GetID() string {
	if id := config.EnvOr(config.EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "adspace-0"
}
