package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/humidifier"
	"github.com/clambin/humidifier-cycler/internal/mode"
	"github.com/clambin/humidifier-cycler/internal/selector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var setCmd = cobra.Command{
	Use:   "set <mode|humidity>",
	Short: "Move the humidifier to a mode, or to the mode matching a target humidity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		l := newLogger(os.Stderr, v, false)
		a, err := newApp(cmd.Context(), v, prometheus.NewRegistry(), l)
		if err != nil {
			return err
		}
		defer a.close()
		return set(cmd.Context(), a.humidifier, args[0], cmd.OutOrStdout())
	},
}

type setter interface {
	SetHumidity(ctx context.Context, humidity float64) (driver.Outcome, error)
	TurnOff(ctx context.Context) (driver.Outcome, error)
	Status() humidifier.Status
}

// set moves the humidifier to the requested mode or humidity. A mode is translated to its representative
// humidity, so the persisted target keeps matching the appliance's mode.
func set(ctx context.Context, h setter, arg string, w io.Writer) error {
	m, err := mode.Parse(arg)
	switch {
	case err == nil && m == mode.Away:
		_, err = h.TurnOff(ctx)
	case err == nil:
		humidity, _ := selector.Humidity(m)
		_, err = h.SetHumidity(ctx, humidity)
	case errors.Is(err, mode.ErrInvalidMode):
		humidity, parseErr := strconv.ParseFloat(arg, 64)
		if parseErr != nil {
			return fmt.Errorf("%q is neither a mode nor a humidity: %w", arg, err)
		}
		_, err = h.SetHumidity(ctx, humidity)
	}
	if err != nil {
		return err
	}
	status := h.Status()
	_, err = fmt.Fprintf(w, "%s: %s (target: %.1f)\n", status.Name, status.Mode, status.Target)
	return err
}
