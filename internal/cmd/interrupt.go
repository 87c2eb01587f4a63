// Copyright 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/shutdown"
)

const InterruptExitCode = 130

var ErrInterrupted = stderrors.New("interrupt received")

func IsInterrupted(err error) bool {
	return stderrors.Is(err, ErrInterrupted)
}

func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

// executeWithSignals runs fn and, on the first signal, cancels it, waits up
// to shutdownTimeout for it to return and reports ErrInterrupted. Shutdown
// hooks run after fn has returned either way.
func executeWithSignals(ctx context.Context, cancel context.CancelFunc, sigCh <-chan os.Signal, coordinator *shutdown.Coordinator, fn func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(ctx)
	}()

	select {
	case err := <-errCh:
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)
		return err
	case sig := <-sigCh:
		logger.Logger.Info("Received signal, shutting down", "signal", sig.String())
		cancel()
		select {
		case <-errCh:
		case <-time.After(shutdownTimeout):
			logger.Logger.Warn("Command did not stop in time", "timeout", shutdownTimeout)
		}
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)
		return ErrInterrupted
	}
}
