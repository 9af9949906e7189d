//go:build !windows

// Package process terminates helper processes spawned for previews.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid so that
// Chromium renderer and GPU helpers exit with the browser.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
