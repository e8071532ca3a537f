// SPDX-License-Identifier: EPL-2.0

package audacq_test

import (
	"context"
	"fmt"

	"github.com/ik5/audacq"
	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/dsp"
	"github.com/ik5/audacq/internal/audiotest"
	"github.com/ik5/audacq/sink"
	"github.com/ik5/audacq/writer"
)

// Example records the single tone burst of an offline source with a
// triggered writer.
func Example() {
	src := audiotest.NewBurstSource(8000, 1, 8000,
		audiotest.Burst{Start: 2000, End: 4000, Frequency: 400, Amplitude: 0.5})
	iface, err := audio.NewOffline(src, audio.OfflineOptions{SampleRate: 8000, Channels: 1, PeriodSize: 200})
	if err != nil {
		fmt.Println(err)
		return
	}

	var null sink.Null
	w := writer.NewTriggered(&null, writer.Options{}, writer.TriggerOptions{
		Channel:     audacq.DefaultTrigger,
		Pretrigger:  800,
		Posttrigger: 400,
	})
	defer w.Close()

	sess, err := audacq.NewSession(nil, w, audacq.SessionOptions{
		Channels: 1,
		Detect: &audacq.DetectOptions{Gate: dsp.GateOptions{
			OpenThreshold:  0.1,
			OpenCount:      5,
			OpenPeriods:    1,
			CloseThreshold: 0.1,
			CloseCount:     1,
			ClosePeriods:   1,
			PeriodSize:     200,
		}},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	if err := w.Start(); err != nil {
		fmt.Println(err)
		return
	}
	if err := sess.Run(context.Background(), iface); err != nil {
		fmt.Println(err)
	}
	w.Stop()
	w.Join()

	fmt.Println("entries:", null.Entries)
	// Output: entries: 1
}
