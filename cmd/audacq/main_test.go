// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audacq/formats/wav"
	"github.com/ik5/audacq/internal/audiotest"
	"github.com/ik5/audacq/internal/config"
	"github.com/ik5/audacq/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeBurst(t *testing.T, path string) {
	t.Helper()

	src := audiotest.NewBurstSource(8000, 1, 8000,
		audiotest.Burst{Start: 2000, End: 4000, Frequency: 400, Amplitude: 0.5})
	samples := make([]float32, 8000)
	n, _ := src.ReadSamples(samples)
	require.Equal(t, 8000, n)

	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 8000, 1)
	require.NoError(t, enc.Write(samples))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func writeTone(t *testing.T, path string, frames int) {
	t.Helper()

	samples := make([]float32, frames)
	n, _ := audiotest.NewSineSource(8000, 1, frames, 440).ReadSamples(samples)
	require.Equal(t, frames, n)

	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 8000, 1)
	require.NoError(t, enc.Write(samples))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func execute(args ...string) (string, error) {
	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOffline_WAV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "burst.wav")
	out := filepath.Join(dir, "out")
	writeBurst(t, in)

	_, err := execute("offline", in,
		"--rate", "8000", "--period", "200", "--channels", "1",
		"--pretrigger", "0.1", "--posttrigger", "0.05",
		"--open-thresh", "0.1", "--open-count", "5",
		"--close-thresh", "0.1", "--close-count", "1",
		"--sink", "wav", "--dir", out,
		"--log-level", "error")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "entry_000000.yaml"))
	assert.FileExists(t, filepath.Join(out, "entry_000000_in_1.wav"))

	log, err := os.ReadFile(filepath.Join(out, "session.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "recording started")
}

func TestOffline_Continuous(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "burst.wav")
	writeBurst(t, in)

	_, err := execute("offline", in, in,
		"--rate", "16000", "--period", "256", "--channels", "2",
		"--mode", "continuous", "--detect=false",
		"--sink", "null", "--log-level", "error")
	assert.NoError(t, err)
}

func TestOffline_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute("offline", filepath.Join(dir, "x.wav"), "--mode", "bogus", "--log-level", "error")
	assert.ErrorIs(t, err, config.ErrInvalidSettings)

	_, err = execute("offline", filepath.Join(dir, "missing.wav"), "--sink", "null", "--log-level", "error")
	assert.Error(t, err)

	_, err = execute("offline", "--sink", "null")
	assert.Error(t, err, "at least one file is required")
}

func TestOffline_LongFileSingleEntry(t *testing.T) {
	// about four times the writer's default buffer
	const frames = 120 * 8000

	dir := t.TempDir()
	in := filepath.Join(dir, "long.wav")
	out := filepath.Join(dir, "out")
	writeTone(t, in, frames)

	_, err := execute("offline", in,
		"--rate", "8000", "--period", "200", "--channels", "1",
		"--mode", "continuous", "--detect=false",
		"--sink", "wav", "--dir", out,
		"--log-level", "error")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(out, "entry_000001.yaml"))
	data, err := os.ReadFile(filepath.Join(out, "entry_000000.yaml"))
	require.NoError(t, err)
	var info sink.EntryInfo
	require.NoError(t, yaml.Unmarshal(data, &info))
	assert.Zero(t, info.Xruns)
	require.Len(t, info.Channels, 1)
	assert.Equal(t, uint32(0), info.Channels[0].Start)
	assert.Equal(t, frames, info.Channels[0].Frames)
}
