package config

import "os"

func IsDebug() bool {
	return os.Getenv("MUALIM_DEBUG") == "1"
}
