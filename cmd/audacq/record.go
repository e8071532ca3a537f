// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/capture"
	"github.com/ik5/audacq/formats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func recordCommand(a *app) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from a capture device until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.settings
			dev, err := capture.Open(a.log, capture.Config{
				Device:     device,
				SampleRate: cfg.Session.SampleRate,
				Channels:   cfg.Session.Channels,
				PeriodSize: cfg.Session.PeriodSize,
			})
			if err != nil {
				return err
			}
			defer dev.Close()
			cfg.Session.SampleRate = dev.SampleRate()

			p, err := newPipeline(cmd.Context(), a.log, cfg)
			if err != nil {
				return err
			}
			defer p.close()

			used := false
			return p.run(cmd.Context(), func(uint32) (audio.Interface, error) {
				if used {
					return nil, nil
				}
				used = true
				return dev, nil
			})
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "capture device name or id (default device when empty)")
	return cmd
}

func offlineCommand(a *app) *cobra.Command {
	var realtime bool

	cmd := &cobra.Command{
		Use:   "offline FILE...",
		Short: "Process audio files as if they were recorded live",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			cfg := a.settings
			p, err := newPipeline(cmd.Context(), a.log, cfg)
			if err != nil {
				return err
			}
			defer p.close()

			reg := formats.NewRegistry()
			return p.run(cmd.Context(), func(start uint32) (audio.Interface, error) {
				if len(files) == 0 {
					return nil, nil
				}
				path := files[0]
				files = files[1:]

				src, err := reg.Open(path)
				if err != nil {
					return nil, fmt.Errorf("open %s: %w", path, err)
				}
				a.log.Info("processing file",
					zap.String("path", path),
					zap.Int("rate", src.SampleRate()),
					zap.Int("channels", src.Channels()),
					zap.Uint32("start", start))

				iface, err := audio.NewOffline(src, audio.OfflineOptions{
					SampleRate: cfg.Session.SampleRate,
					Channels:   cfg.Session.Channels,
					PeriodSize: cfg.Session.PeriodSize,
					Realtime:   realtime,
					StartTime:  start,
					Pace:       p.pace,
				})
				if err != nil {
					_ = src.Close()
					return nil, err
				}
				return iface, nil
			})
		},
	}
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace periods at the sample rate")
	return cmd
}
