package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "cycler",
		Short: "Sets a humidifier's mode by pressing its cycle button",
	}
)

var args = charmer.Arguments{
	"debug":                             {Default: false, Help: "Log debug messages"},
	"name":                              {Default: "humidifier", Help: "Name of the humidifier"},
	"type":                              {Default: "humidifier", Help: "Device type (humidifier or dehumidifier)"},
	"api.addr":                          {Default: ":8080", Help: "Address of the API and /health endpoint"},
	"exporter.addr":                     {Default: ":9090", Help: "Address of Prometheus exporter"},
	"policy.fastRepeat":                 {Default: 2500 * time.Millisecond, Help: "Max time between presses that the appliance takes as a fast repeat"},
	"policy.restartAfter":               {Default: 5100 * time.Millisecond, Help: "Fast presses landing later than this are dropped by the appliance"},
	"policy.settle":                     {Default: 5500 * time.Millisecond, Help: "Idle time the appliance needs before accepting a new press"},
	"policy.wakeSettle":                 {Default: 7 * time.Second, Help: "Idle time the appliance needs after waking up from away"},
	"policy.maxAttempts":                {Default: 5, Help: "Max press attempts per mode"},
	"presser.type":                      {Default: "homeassistant", Help: "Presser type (homeassistant or mqtt)"},
	"presser.homeassistant.url":         {Default: "http://homeassistant:8123", Help: "Home Assistant URL"},
	"presser.homeassistant.token":       {Default: "", Help: "Home Assistant long-lived access token"},
	"presser.homeassistant.entity":      {Default: "", Help: "Entity pressing the button"},
	"presser.homeassistant.service":     {Default: "button.press", Help: "Service pressing the button"},
	"presser.homeassistant.wakeService": {Default: "", Help: "Service waking the appliance from away. Empty uses the press service"},
	"presser.homeassistant.timeout":     {Default: 5 * time.Second, Help: "Home Assistant request timeout"},
	"presser.mqtt.broker":               {Default: "tcp://localhost:1883", Help: "MQTT broker"},
	"presser.mqtt.clientID":             {Default: "cycler", Help: "MQTT client ID"},
	"presser.mqtt.username":             {Default: "", Help: "MQTT username"},
	"presser.mqtt.password":             {Default: "", Help: "MQTT password"},
	"presser.mqtt.topic":                {Default: "", Help: "MQTT topic pressing the button"},
	"presser.mqtt.payload":              {Default: "PRESS", Help: "MQTT payload pressing the button"},
	"presser.mqtt.wakePayload":          {Default: "", Help: "MQTT payload waking the appliance from away. Empty uses the press payload"},
	"presser.mqtt.qos":                  {Default: 1, Help: "MQTT QoS"},
	"presser.mqtt.timeout":              {Default: 5 * time.Second, Help: "MQTT publish timeout"},
	"store.type":                        {Default: "file", Help: "Store type (file or sqlite)"},
	"store.path":                        {Default: "persistence.json", Help: "Location of the persisted target humidity"},
	"slack.token":                       {Default: "", Help: "Slack token"},
	"slack.channel":                     {Default: "", Help: "Slack channel. Empty posts to all channels the bot is a member of"},
	"influxdb.url":                      {Default: "", Help: "InfluxDB URL. Empty disables recording"},
	"influxdb.token":                    {Default: "", Help: "InfluxDB token"},
	"influxdb.org":                      {Default: "", Help: "InfluxDB organisation"},
	"influxdb.bucket":                   {Default: "", Help: "InfluxDB bucket"},
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	_ = charmer.SetPersistentFlags(&RootCmd, viper.GetViper(), args)
	RootCmd.AddCommand(&runCmd, &setCmd, &configCmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/cycler/")
		viper.AddConfigPath("$HOME/.cycler")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CYCLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(w io.Writer, v *viper.Viper, json bool) *slog.Logger {
	var opts slog.HandlerOptions
	if v.GetBool("debug") {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, &opts))
	}
	return slog.New(slog.NewTextHandler(w, &opts))
}
