package cmd

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		defer func() { _ = encoder.Close() }()
		return showConfig(viper.GetViper(), encoder)
	},
}

type Encoder interface {
	Encode(any) error
}

var secrets = []string{"token", "password"}

// showConfig encodes all settings, with secrets masked.
func showConfig(v *viper.Viper, e Encoder) error {
	return e.Encode(mask(v.AllSettings()))
}

func mask(settings map[string]any) map[string]any {
	masked := make(map[string]any, len(settings))
	for key, value := range settings {
		switch val := value.(type) {
		case map[string]any:
			masked[key] = mask(val)
		case string:
			if val != "" && slices.Contains(secrets, strings.ToLower(key)) {
				val = "********"
			}
			masked[key] = val
		default:
			masked[key] = value
		}
	}
	return masked
}
