// Command tcpecho is a TCP echo server used to check wrapped services.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/axondata/go-svcwrap/internal/echo"
)

func main() {
	var (
		port    = flag.Int("p", echo.DefaultPort, "Port to listen on")
		host    = flag.String("host", "127.0.0.1", "Address to bind")
		verbose = flag.Bool("v", false, "Log every connection")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(*host, *port, log); err != nil {
		log.WithError(err).Fatal("tcpecho failed")
	}
}

func run(host string, port int, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := echo.Listen(fmt.Sprintf("%s:%d", host, port), log)
	if err != nil {
		return err
	}
	log.WithField("addr", srv.Addr().String()).Info("listening")

	return srv.Serve(ctx)
}
