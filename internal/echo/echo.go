// Package echo implements a TCP echo server and a client probe, used to check
// that a wrapped service is actually reachable.
package echo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"vawter.tech/stopper"
)

// DefaultPort is the port tcpecho listens on without -p
const DefaultPort = 30222

// DefaultShutdownGrace is how long open connections may keep echoing after
// Serve is told to stop
const DefaultShutdownGrace = time.Second

// ErrMismatch indicates the echoed payload differs from what was sent
var ErrMismatch = errors.New("echo: payload mismatch")

// Server writes back every byte it reads on each accepted connection
type Server struct {
	// ShutdownGrace bounds how long Serve waits for open connections
	ShutdownGrace time.Duration

	ln     net.Listener
	logger logrus.FieldLogger
}

// Listen binds addr and returns a Server ready to Serve
func Listen(addr string, logger logrus.FieldLogger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Server{ShutdownGrace: DefaultShutdownGrace, ln: ln, logger: logger}, nil
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is done or the listener is closed.
// Open connections then get ShutdownGrace to finish before they are closed.
func (s *Server) Serve(ctx context.Context) error {
	sctx := stopper.WithContext(ctx)
	stop := context.AfterFunc(ctx, func() { sctx.Stop(s.ShutdownGrace) })
	defer stop()

	sctx.Go(func(sctx *stopper.Context) error {
		<-sctx.Stopping()
		_ = s.ln.Close()
		return nil
	})

	var acceptErr error
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !sctx.IsStopping() && !errors.Is(err, net.ErrClosed) {
				acceptErr = err
			}
			break
		}

		sctx.Go(func(sctx *stopper.Context) error {
			s.handle(sctx, conn)
			return nil
		})
	}

	sctx.Stop(s.ShutdownGrace)
	if err := sctx.Wait(); err != nil {
		s.logger.WithError(err).Debug("connection handlers stopped")
	}
	return acceptErr
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	n, err := io.Copy(conn, conn)
	log := s.logger.WithFields(logrus.Fields{"remote": conn.RemoteAddr().String(), "bytes": n})
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Debug("connection ended")
		return
	}
	log.Debug("connection closed")
}

// Close stops accepting connections
func (s *Server) Close() error {
	return s.ln.Close()
}

// Probe sends payload to addr and checks that the same bytes come back
// before ctx is done
func Probe(ctx context.Context, addr string, payload []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	if _, err := conn.Write(payload); err != nil {
		return err
	}

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, got); err != nil {
		return err
	}
	if !bytes.Equal(got, payload) {
		return fmt.Errorf("%w: sent %q, got %q", ErrMismatch, payload, got)
	}
	return nil
}

// WaitReachable probes addr every interval until it echoes payload or ctx
// is done, returning the last probe error in that case
func WaitReachable(ctx context.Context, addr string, payload []byte, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval*4)
		err := Probe(probeCtx, addr, payload)
		cancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not reachable: %w", addr, err)
		case <-ticker.C:
		}
	}
}
