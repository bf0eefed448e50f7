package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var runCmd = cobra.Command{
	Use:   "run",
	Short: "Serve the humidifier API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		v := viper.GetViper()
		return run(ctx, v, prometheus.DefaultRegisterer, cmd.Root().Version, newLogger(os.Stderr, v, true))
	},
}

func run(ctx context.Context, v *viper.Viper, r prometheus.Registerer, version string, l *slog.Logger) error {
	l.Info("cycler starting", "version", version)
	defer l.Info("cycler stopped")

	a, err := newApp(ctx, v, r, l)
	if err != nil {
		return err
	}
	defer a.close()

	l.Info("humidifier restored", "mode", a.humidifier.Status().Mode, "target", a.humidifier.Target())

	g, ctx := errgroup.WithContext(ctx)
	serve(ctx, g, &http.Server{Addr: v.GetString("api.addr"), Handler: a.handler()})
	serve(ctx, g, &http.Server{Addr: v.GetString("exporter.addr"), Handler: promhttp.Handler()})
	return g.Wait()
}

// serve runs the server until ctx is done.
func serve(ctx context.Context, g *errgroup.Group, s *http.Server) {
	g.Go(func() error {
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
}
