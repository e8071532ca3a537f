// SPDX-License-Identifier: EPL-2.0

package main

import (
	"github.com/ik5/audacq/internal/config"
	"github.com/ik5/audacq/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app is the state shared by the subcommands.
type app struct {
	v        *viper.Viper
	file     string
	settings *config.Settings
	log      *zap.Logger
}

func rootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "audacq",
		Short:         "Triggered and continuous audio acquisition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&a.file, "config", "c", "", "YAML configuration file")
	setupFlags(fs)
	cobra.CheckErr(config.BindFlags(a.v, fs))

	root.AddCommand(
		devicesCommand(a),
		recordCommand(a),
		offlineCommand(a),
	)
	return root
}

// setupFlags declares the common flags. Defaults come from viper, so the
// flag defaults here are only shown in the help text.
func setupFlags(fs *pflag.FlagSet) {
	fs.String("name", "audacq", "session name, also the log bus address")
	fs.Int("rate", 48000, "sample rate in Hz")
	fs.Int("period", 1024, "period size in frames")
	fs.Int("channels", 1, "number of input channels")

	fs.String("mode", "triggered", "writer mode: continuous or triggered")
	fs.Float64("buffer", 2, "writer buffer in seconds")
	fs.Float64("pretrigger", 1, "seconds recorded before an onset")
	fs.Float64("posttrigger", 0.5, "seconds recorded after an offset")

	fs.Bool("detect", true, "run the crossing-rate detector")
	fs.Int("detect-channel", 0, "input channel index analysed by the detector")
	fs.Float64("open-thresh", 0.01, "sample threshold for opening the gate")
	fs.Int("open-count", 20, "crossings per window needed to open the gate")
	fs.Float64("close-thresh", 0.01, "sample threshold for closing the gate")
	fs.Int("close-count", 5, "crossings per window below which the gate closes")

	fs.String("sink", "wav", "storage sink: null, stream or wav")
	fs.String("dir", "data", "output directory of the wav sink")

	fs.String("bus", "inproc", "log bus: inproc or mqtt")
	fs.String("broker", "tcp://localhost:1883", "MQTT broker of the log bus")

	fs.Bool("metrics", false, "serve prometheus metrics")
	fs.String("listen", ":9100", "metrics listen address")

	fs.String("log-level", "info", "log level")
	fs.Bool("dev", false, "development logging")
	fs.Bool("monitor", false, "log channel levels periodically")
}

func (a *app) load(cmd *cobra.Command) error {
	s, err := config.Load(a.v, a.file)
	if err != nil {
		return err
	}
	log, err := logging.New(s.Log.Level, s.Log.Development)
	if err != nil {
		return err
	}

	a.settings = s
	a.log = log.With(zap.String("session", s.Session.Name))
	a.log.Debug("configuration loaded", zap.String("command", cmd.Name()), zap.Any("settings", s))
	return nil
}
