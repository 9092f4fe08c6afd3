package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/dispatch"
	"github.com/saturnino-fabrica-de-software/ponto/internal/mqtt"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/modelserver"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/ponto/internal/webhook"
)

// newDetectors returns the detector for kiosk frames and a separate one for
// enrollment photos. The mock keeps a script position per instance, so
// sharing one would let enrollments advance the kiosk liveness script.
func newDetectors(ctx context.Context, cfg *config.Config) (kiosk, enroll provider.SignalDetector, err error) {
	switch cfg.SignalProvider {
	case "mock":
		return mock.NewLivenessDetector(), mock.NewLivenessDetector(), nil
	case "rekognition":
		rcfg := rekognition.DefaultConfig()
		rcfg.Region = cfg.AWSRegion
		d, err := rekognition.NewDetector(ctx, rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("rekognition detector: %w", err)
		}
		return d, d, nil
	}
	return nil, nil, fmt.Errorf("unknown signal provider %q", cfg.SignalProvider)
}

func newModel(cfg *config.Config) (provider.InferenceModel, error) {
	switch cfg.ModelProvider {
	case "mock":
		return mock.NewModel(cfg.EmbeddingDim), nil
	case "modelserver":
		mcfg := modelserver.DefaultConfig()
		mcfg.BaseURL = cfg.ModelServerURL
		mcfg.Model = cfg.ModelName
		if cfg.ModelInputSize > 0 {
			mcfg.InputShape = []int{cfg.ModelInputSize, cfg.ModelInputSize, 3}
		}
		return modelserver.NewModel(mcfg), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
}

// newPublisher returns the attendance transport and a func releasing it
func newPublisher(cfg *config.Config, logger *slog.Logger) (dispatch.Publisher, func(), error) {
	switch cfg.Transport {
	case "mqtt":
		mcfg := mqtt.DefaultConfig()
		mcfg.Broker = cfg.MQTTBroker
		mcfg.Topic = cfg.MQTTTopic
		mcfg.IdleDisconnect = cfg.MQTTIdleDisconnect
		p := mqtt.NewPublisher(mcfg, logger)
		return p, p.Close, nil
	case "webhook":
		return webhook.NewPublisher(cfg.WebhookURL, cfg.WebhookSecret, cfg.DeliveryTimeout), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}
