//go:build !windows

package privilege

import "os"

func hasElevatedRights() bool {
	return os.Geteuid() == 0
}
