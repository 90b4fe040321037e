//go:build !unix

package integration

import "os/exec"

// killProcessGroup keeps exec's default of killing only the direct child.
func killProcessGroup(*exec.Cmd) {}
