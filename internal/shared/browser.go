package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var currentOS = func() string { return runtime.GOOS }

// OpenBrowser launches the default browser at url so the user can complete
// the provider login flow. The command is started, not waited on; callers
// poll the backend for completion instead.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch os := currentOS(); os {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", os)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
