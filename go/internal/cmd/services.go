package main

import (
	"fmt"

	"github.com/mcdev12/reflex/go/internal/reaction/config"
	"github.com/mcdev12/reflex/go/internal/reaction/gateway"
	"github.com/mcdev12/reflex/go/internal/reaction/publisher"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Gateway   *gateway.Service
	Publisher *publisher.NATSPublisher
}

func setupServices(cfg Config, settings config.Settings) (*Services, error) {
	services := &Services{}
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.Settings = settings

	// Event mirroring is optional
	if cfg.NATSURL != "" {
		pub, err := publisher.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to set up publisher: %w", err)
		}
		services.Publisher = pub
		gatewayConfig.Sink = pub
		log.Info().
			Str("nats_url", cfg.NATSURL).
			Str("subject_prefix", cfg.NATSSubjectPrefix).
			Msg("publishing game events to NATS")
	}

	gw, err := gateway.NewService(gatewayConfig)
	if err != nil {
		if services.Publisher != nil {
			services.Publisher.Close()
		}
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	services.Gateway = gw
	return services, nil
}

func (s *Services) Close() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}
