//go:build !unix

package build

import "syscall"

func sshProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func killProcessGroup(pid int) error {
	return nil
}
