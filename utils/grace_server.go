package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 60 * time.Second
	shutdownGrace       = 30 * time.Second

	gracefulEnvKey = "NESTBOARD_GRACEFUL"
	// fd 3 carries the inherited listener across re-exec
	gracefulListenerFD = 3
)

// GraceServer wraps http.Server with zero-downtime restart: SIGTERM
// drains and exits, SIGUSR2 forks a replacement that inherits the
// listening socket before the old process drains.
type GraceServer struct {
	*http.Server

	listener     net.Listener
	inherited    bool
	signals      chan os.Signal
	shutdownDone chan struct{}
}

// NewGraceServer builds a graceful server for addr and handler.
func NewGraceServer(addr string, handler http.Handler) *GraceServer {
	return &GraceServer{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		inherited:    os.Getenv(gracefulEnvKey) != "",
		signals:      make(chan os.Signal, 1),
		shutdownDone: make(chan struct{}),
	}
}

// ListenAndServe binds (or inherits) the listener and serves until a
// shutdown signal drains the server. Returns nil on clean shutdown.
func (srv *GraceServer) ListenAndServe() error {
	ln, err := srv.acquireListener()
	if err != nil {
		return err
	}
	srv.listener = ln

	go srv.handleSignals()
	err = srv.Server.Serve(srv.listener)
	<-srv.shutdownDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (srv *GraceServer) acquireListener() (net.Listener, error) {
	if srv.inherited {
		f := os.NewFile(gracefulListenerFD, "")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return ln, nil
}

func (srv *GraceServer) handleSignals() {
	signal.Notify(srv.signals, syscall.SIGTERM, syscall.SIGUSR2)

	for sig := range srv.signals {
		switch sig {
		case syscall.SIGTERM:
			Sugar.Info("SIGTERM: draining HTTP server")
			srv.drain()
		case syscall.SIGUSR2:
			Sugar.Info("SIGUSR2: spawning replacement process")
			pid, err := srv.forkReplacement()
			if err != nil {
				Sugar.Errorf("replacement process failed: %v, continuing to serve", err)
				continue
			}
			Sugar.Infof("replacement running, pid=%d, draining old server", pid)
			srv.drain()
		}
	}
}

func (srv *GraceServer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("server shutdown: %v", err)
	}
	close(srv.shutdownDone)
}

func (srv *GraceServer) forkReplacement() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is %T, cannot pass fd", srv.listener)
	}
	f, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("dup listener fd: %w", err)
	}

	env := []string{gracefulEnvKey + "=1"}
	for _, e := range os.Environ() {
		if e != gracefulEnvKey+"=1" {
			env = append(env, e)
		}
	}

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), f.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}

// Serve runs a graceful HTTP server on addr until drained.
func Serve(addr string, handler http.Handler) error {
	return NewGraceServer(addr, handler).ListenAndServe()
}
