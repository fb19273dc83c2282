package util

import "os"

// containerMarkers are files docker and podman create inside containers
var containerMarkers = []string{"/.dockerenv", "/run/.containerenv"}

func IsRunningInDocker() bool {
	for _, m := range containerMarkers {
		if _, err := os.Stat(m); err == nil {
			return true
		}
	}

	return false
}
