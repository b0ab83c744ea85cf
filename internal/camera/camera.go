// Package camera wraps a V4L2 capture device behind a frame source the
// sessions can consume. Frames are negotiated as MJPEG so each read decodes
// to a standard image.Image.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/blackjack/webcam"
)

// ErrDeviceUnavailable reports that the capture device could not be opened
// or configured. Fatal to the session that requested it.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// V4L2 fourcc codes for JPEG-compressed frames.
const (
	pixFmtMJPEG webcam.PixelFormat = 0x47504A4D // 'MJPG'
	pixFmtJPEG  webcam.PixelFormat = 0x4745504A // 'JPEG'
)

const frameWaitTimeoutSec = 5

// FrameSource produces frames for a session loop. Implementations must be
// safe to Close on every session exit path.
type FrameSource interface {
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// Device is a FrameSource backed by a V4L2 webcam.
type Device struct {
	cam *webcam.Webcam
}

// Open opens /dev/video<index> and starts streaming MJPEG frames.
func Open(index int) (*Device, error) {
	path := fmt.Sprintf("/dev/video%d", index)
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrDeviceUnavailable, path, err)
	}

	format, ok := pickJPEGFormat(cam.GetSupportedFormats())
	if !ok {
		_ = cam.Close()
		return nil, fmt.Errorf("%w: %s offers no MJPEG format", ErrDeviceUnavailable, path)
	}

	if _, _, _, err := cam.SetImageFormat(format, 1280, 720); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("%w: cannot set image format: %v", ErrDeviceUnavailable, err)
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("%w: cannot start streaming: %v", ErrDeviceUnavailable, err)
	}

	return &Device{cam: cam}, nil
}

func pickJPEGFormat(formats map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	if _, ok := formats[pixFmtMJPEG]; ok {
		return pixFmtMJPEG, true
	}
	if _, ok := formats[pixFmtJPEG]; ok {
		return pixFmtJPEG, true
	}
	return 0, false
}

// ReadFrame blocks until the next frame is available and decodes it.
// Frame timeouts are retried until the context is cancelled.
func (d *Device) ReadFrame(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := d.cam.WaitForFrame(frameWaitTimeoutSec)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, fmt.Errorf("frame wait failed: %w", err)
		}

		data, err := d.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("frame read failed: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			// Some devices emit truncated frames right after streaming
			// starts; skip them instead of failing the session.
			continue
		}
		return img, nil
	}
}

// Close stops streaming and releases the device.
func (d *Device) Close() error {
	if d.cam == nil {
		return nil
	}
	_ = d.cam.StopStreaming()
	if err := d.cam.Close(); err != nil {
		return fmt.Errorf("closing capture device: %w", err)
	}
	return nil
}
