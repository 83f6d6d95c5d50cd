//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// KillTree terminates pid and its children using taskkill /T.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
