package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/marketpulse/voice-core/core/audio"
)

const (
	captureChannels     = 1
	capturePeriodFrames = 480
	capturePeriods      = 3
)

type captureClient struct {
	device *malgo.Device

	mu      sync.Mutex
	onAudio func(audio []byte)
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext) error {
	format := malgo.FormatS16
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.DefaultSampleRate)
	config.Capture.Format = format
	config.Capture.Channels = captureChannels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = capturePeriodFrames
	config.Periods = capturePeriods

	bytesPerFrame := malgo.SampleSizeInBytes(format) * captureChannels

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, captured []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(captured) < n {
				return
			}
			c.mu.Lock()
			onAudio := c.onAudio
			c.mu.Unlock()
			if onAudio != nil {
				onAudio(captured[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
	return nil
}

func (c *captureClient) Start(onAudio func(audio []byte)) error {
	c.mu.Lock()
	device := c.device
	c.onAudio = onAudio
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if device.IsStarted() {
		return nil
	}

	// Device start/stop run without the lock held: the device waits for
	// in-flight data callbacks, and those take the lock.
	if err := device.Start(); err != nil {
		c.mu.Lock()
		c.onAudio = nil
		c.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	device := c.device
	c.onAudio = nil
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if !device.IsStarted() {
		return nil
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.onAudio = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}
