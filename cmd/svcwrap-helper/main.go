// Command svcwrap-helper is the executable a service manager launches for a
// service registered by svcwrap. Its arguments are the target executable
// followed by the target's arguments; it runs the target and ties the
// target's lifetime to the service's.
package main

import (
	"errors"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// exitUsage is returned when no target is given
const exitUsage = 2

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return log
}

// targetCommand builds the command for args = [target, targetArgs...]
func targetCommand(args []string) (*exec.Cmd, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errors.New("usage: svcwrap-helper <target> [args...]")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// exitCode returns the code a finished target reported, or 1 when it did
// not exit normally
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return 1
}
