package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cfg is the process-wide configuration, populated by rootCmd's
// PersistentPreRunE from flags, environment (FRAGCTL_*), and an
// optional config file.
var cfg struct {
	Addr      string
	LogLevel  string
	DatagramD int
	TTL       int
	MinRate   uint64
	MaxRate   uint64
	Queue     int
	Compress  bool
}

var rootCmd = &cobra.Command{
	Use:   "fragctl",
	Short: "fragctl drives a fragmentos connectionless transport over UDP",
	Long: `fragctl is a reference client/server for the fragmentos overlay:
it splits application messages into erasure-coded fragments, paces them
through an adaptive rate shaper, and reassembles them on the other side.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "optional config file (yaml/json/toml)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.Int("datagram-size", 200, "wire datagram size D, in bytes")
	flags.Int("ttl", 30, "reassembly/replay-guard time-to-live, in ticks")
	flags.Uint64("min-rate", 1, "shaper floor rate, bytes/ms")
	flags.Uint64("max-rate", 1<<20, "shaper ceiling rate, bytes/ms")
	flags.Int("queue", 64, "shaper queue capacity, in datagrams")
	flags.Bool("compress", false, "snappy-compress message payloads before fragmenting")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("datagram.size", flags.Lookup("datagram-size"))
	viper.BindPFlag("reassembly.ttl", flags.Lookup("ttl"))
	viper.BindPFlag("shaper.min_rate", flags.Lookup("min-rate"))
	viper.BindPFlag("shaper.max_rate", flags.Lookup("max-rate"))
	viper.BindPFlag("shaper.queue", flags.Lookup("queue"))
	viper.BindPFlag("compress", flags.Lookup("compress"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
}

func loadConfig() error {
	viper.SetEnvPrefix("FRAGCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
	}

	cfg.LogLevel = viper.GetString("log.level")
	cfg.DatagramD = viper.GetInt("datagram.size")
	cfg.TTL = viper.GetInt("reassembly.ttl")
	cfg.MinRate = viper.GetUint64("shaper.min_rate")
	cfg.MaxRate = viper.GetUint64("shaper.max_rate")
	cfg.Queue = viper.GetInt("shaper.queue")
	cfg.Compress = viper.GetBool("compress")

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}
