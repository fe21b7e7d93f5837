package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridecare/ridecare/internal/conf"
	"github.com/ridecare/ridecare/internal/tui"
)

// Run 启动 HTTP 服务，收到退出信号后优雅关闭
func Run(bc *conf.Bootstrap) error {
	log, closeLog := SetupLog(bc)
	defer closeLog()

	handler, cleanUp, err := wireApp(bc, log)
	if err != nil {
		return err
	}
	defer cleanUp()

	timeout := bc.Server.HTTP.Timeout.Duration()
	svc := &http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server start", "addr", svc.Addr, "version", bc.BuildVersion)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

// RunReview 在终端中审阅录像 recordingID
func RunReview(ctx context.Context, bc *conf.Bootstrap, recordingID string) error {
	// 终端界面占用标准输出
	bc.Log.DisableStdout = true
	log, closeLog := SetupLog(bc)
	defer closeLog()

	manager, cleanUp, err := wireReview(bc, log)
	if err != nil {
		return err
	}
	defer cleanUp()

	s, err := manager.Open(ctx, recordingID)
	if err != nil {
		return err
	}
	return tui.Run(ctx, s)
}
