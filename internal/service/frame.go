package service

import (
	"bytes"
	"fmt"
	"image"
	// decoders for frames posted as JPEG or PNG
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

const (
	// MaxFrameSize bounds an uploaded frame (Rekognition's inline image limit)
	MaxFrameSize = 5 << 20
	// MaxFramePixels bounds the decoded size, headers are checked before decoding
	MaxFramePixels = 4096 * 4096
)

// DecodeFrame turns an uploaded JPEG or PNG into a frame. The encoded bytes
// are kept so detectors can forward them without re-encoding.
func DecodeFrame(data []byte, rotationDegrees int) (domain.Frame, error) {
	if len(data) == 0 {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(fmt.Errorf("empty body"))
	}
	if len(data) > MaxFrameSize {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(fmt.Errorf("image larger than %d bytes", MaxFrameSize))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxFramePixels {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(fmt.Errorf("image of %dx%d pixels exceeds %d", cfg.Width, cfg.Height, MaxFramePixels))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Frame{}, domain.ErrInvalidImage.WithError(err)
	}

	return domain.Frame{
		Image:           img,
		Encoded:         data,
		RotationDegrees: rotationDegrees,
		CapturedAt:      time.Now(),
	}, nil
}
