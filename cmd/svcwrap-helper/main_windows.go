//go:build windows

package main

import (
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/svc"
)

func main() {
	log := newLogger()

	isService, err := svc.IsWindowsService()
	if err != nil {
		log.WithError(err).Fatal("detecting service session")
	}
	if !isService {
		// Interactive run: behave like a plain launcher
		cmd, err := targetCommand(os.Args[1:])
		if err != nil {
			log.Error(err)
			os.Exit(exitUsage)
		}
		os.Exit(exitCode(cmd.Run()))
	}

	if err := svc.Run("", &handler{log: log}); err != nil {
		log.WithError(err).Fatal("service dispatcher failed")
	}
}

type handler struct {
	log *logrus.Logger
}

// Execute receives the start arguments with the service name first
func (h *handler) Execute(args []string, r <-chan svc.ChangeRequest, s chan<- svc.Status) (bool, uint32) {
	const accepts = svc.AcceptStop | svc.AcceptShutdown
	s <- svc.Status{State: svc.StartPending}

	var targetArgs []string
	if len(args) > 1 {
		targetArgs = args[1:]
	}
	log := h.log.WithField("args", targetArgs)

	cmd, err := targetCommand(targetArgs)
	if err != nil {
		log.Error(err)
		return true, exitUsage
	}
	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("starting target")
		return true, 1
	}
	log.WithField("pid", cmd.Process.Pid).Info("target started")

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	s <- svc.Status{State: svc.Running, Accepts: accepts}
	for {
		select {
		case err := <-exited:
			code := exitCode(err)
			log.WithField("code", code).Info("target exited")
			s <- svc.Status{State: svc.StopPending}
			return code != 0, uint32(code)

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				s <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s <- svc.Status{State: svc.StopPending}
				stopTarget(log, cmd, exited)
				return false, 0
			default:
				log.WithField("cmd", c.Cmd).Warn("unexpected control request")
			}
		}
	}
}

func stopTarget(log *logrus.Entry, cmd *exec.Cmd, exited <-chan error) {
	if err := cmd.Process.Kill(); err != nil {
		log.WithError(err).Warn("killing target")
	}
	<-exited
	log.Info("target stopped")
}
