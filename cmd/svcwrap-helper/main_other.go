//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// main runs the target in the foreground and forwards termination signals,
// so a supervisor that signals the helper reaches the target
func main() {
	log := newLogger()

	cmd, err := targetCommand(os.Args[1:])
	if err != nil {
		log.Error(err)
		os.Exit(exitUsage)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	if err := cmd.Start(); err != nil {
		log.WithError(err).Fatal("starting target")
	}
	log.WithField("pid", cmd.Process.Pid).Info("target started")

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigs:
			log.WithField("signal", sig).Info("forwarding signal")
			_ = cmd.Process.Signal(sig)
		case err := <-exited:
			os.Exit(exitCode(err))
		}
	}
}
