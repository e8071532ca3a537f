// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/ik5/audacq/audio"
	"go.uber.org/zap"
)

// Config selects and configures a capture device.
type Config struct {
	// Device matches a device name (case-insensitive substring) or id.
	// Empty selects the system default.
	Device     string
	SampleRate int
	Channels   int
	PeriodSize int
}

func (c Config) validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 || c.PeriodSize <= 0 {
		return fmt.Errorf("%w: rate %d, channels %d, period %d",
			ErrInvalidConfig, c.SampleRate, c.Channels, c.PeriodSize)
	}
	return nil
}

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	Index   int
	Name    string
	ID      string
	Default bool
}

// Devices lists the capture devices of the default backend.
func Devices(log *zap.Logger) ([]DeviceInfo, error) {
	mctx, err := initContext(log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mctx.Uninit(); mctx.Free() }()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return describe(infos), nil
}

func describe(infos []malgo.DeviceInfo) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		out = append(out, DeviceInfo{
			Index:   i,
			Name:    infos[i].Name(),
			ID:      infos[i].ID.String(),
			Default: infos[i].IsDefault != 0,
		})
	}
	return out
}

// match returns the index of the device selected by want, or -1.
func match(devices []DeviceInfo, want string) int {
	if want == "" {
		for _, d := range devices {
			if d.Default {
				return d.Index
			}
		}
		return -1
	}
	want = strings.ToLower(want)
	for _, d := range devices {
		if d.ID == want || strings.Contains(strings.ToLower(d.Name), want) {
			return d.Index
		}
	}
	return -1
}

func initContext(log *zap.Logger) (*malgo.AllocatedContext, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug(strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return mctx, nil
}

// Device is an open capture device.
type Device struct {
	log *zap.Logger
	cfg Config

	mctx *malgo.AllocatedContext
	dev  *malgo.Device
	di   *deinterleaver

	fn      atomic.Pointer[audio.ProcessFunc]
	running atomic.Bool
	stopped chan struct{}
	once    sync.Once

	closeOnce sync.Once
	closeErr  error
}

// Open initializes the device selected by cfg for F32 capture. The device
// does not run until Run is called.
func Open(log *zap.Logger, cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("capture")

	mctx, err := initContext(log)
	if err != nil {
		return nil, err
	}

	dcfg := malgo.DefaultDeviceConfig(malgo.Capture)
	dcfg.Capture.Format = malgo.FormatF32
	dcfg.Capture.Channels = uint32(cfg.Channels)
	dcfg.SampleRate = uint32(cfg.SampleRate)
	dcfg.PeriodSizeInFrames = uint32(cfg.PeriodSize)
	dcfg.Alsa.NoMMap = 1

	name := "default"
	if cfg.Device != "" {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			return nil, fmt.Errorf("enumerate devices: %w", err)
		}
		i := match(describe(infos), cfg.Device)
		if i < 0 {
			_ = mctx.Uninit()
			mctx.Free()
			return nil, fmt.Errorf("%w: %q", ErrNoDevice, cfg.Device)
		}
		dcfg.Capture.DeviceID = infos[i].ID.Pointer()
		name = infos[i].Name()
	}

	d := &Device{
		log:     log.With(zap.String("device", name)),
		cfg:     cfg,
		mctx:    mctx,
		di:      newDeinterleaver(cfg.Channels, 4*cfg.PeriodSize),
		stopped: make(chan struct{}),
	}

	dev, err := malgo.InitDevice(mctx.Context, dcfg, malgo.DeviceCallbacks{
		Data: d.onData,
		Stop: d.onStop,
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("init device %s: %w", name, err)
	}
	d.dev = dev

	if rate := int(dev.SampleRate()); rate != cfg.SampleRate {
		d.log.Warn("device sample rate differs", zap.Int("requested", cfg.SampleRate), zap.Int("actual", rate))
		d.cfg.SampleRate = rate
	}
	return d, nil
}

func (d *Device) SampleRate() int { return d.cfg.SampleRate }
func (d *Device) Channels() int   { return d.cfg.Channels }
func (d *Device) PeriodSize() int { return d.cfg.PeriodSize }

func (d *Device) onData(_, input []byte, frames uint32) {
	fn := d.fn.Load()
	if fn == nil {
		return
	}
	d.di.process(input, int(frames), *fn)
}

func (d *Device) onStop() {
	d.once.Do(func() { close(d.stopped) })
}

// Run starts the device and blocks until ctx is done or the audio system
// stops the device. A device can be run once.
func (d *Device) Run(ctx context.Context, fn audio.ProcessFunc) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	d.fn.Store(&fn)

	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	d.log.Info("capture started",
		zap.Int("rate", d.cfg.SampleRate),
		zap.Int("channels", d.cfg.Channels),
		zap.Int("period", d.cfg.PeriodSize))

	select {
	case <-ctx.Done():
		_ = d.dev.Stop()
		d.log.Info("capture stopped")
		return ctx.Err()
	case <-d.stopped:
		d.log.Info("device stopped by audio system")
		return nil
	}
}

// Close releases the device and its context. It may be called more than
// once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.dev.Uninit()
		d.closeErr = d.mctx.Uninit()
		d.mctx.Free()
	})
	return d.closeErr
}
