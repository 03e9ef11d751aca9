package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second.
func shutdownContext(parent context.Context, logger logrus.FieldLogger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("received signal, shutting down")
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("received second signal, forcing exit")
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
