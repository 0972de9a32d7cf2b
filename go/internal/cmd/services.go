package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/run/feed"
	"github.com/mcdev12/tempo/go/internal/run/gateway"
	"github.com/mcdev12/tempo/go/internal/run/session"
)

type Services struct {
	Run     *session.Service
	App     *session.App
	Gateway *gateway.Service
	Feed    *feed.JetStreamPublisher
}

func setupServices(ctx context.Context, config *Config, repo session.Repository) (*Services, error) {
	// Wire up dependency injection chain
	// Repository → App → Service, with the gateway as the App's transport
	// and the App as the gateway's connection observer.
	services := &Services{
		Gateway: gateway.NewService(config.Gateway),
	}

	var opts []session.Option
	if config.Feed.URL != "" {
		publisher, err := feed.NewJetStreamPublisher(ctx, config.Feed)
		if err != nil {
			return nil, fmt.Errorf("failed to set up event feed: %w", err)
		}
		services.Feed = publisher
		opts = append(opts, session.WithEventSink(publisher))
		log.Info().Str("url", config.Feed.URL).Str("stream", config.Feed.StreamName).Msg("event feed enabled")
	}

	services.App = session.NewApp(repo, services.Gateway.Transport(), config.Run, opts...)
	services.Gateway.SetObserver(services.App)

	var auth session.Authorizer = session.AllowAll{}
	if token := getEnv("CONTROLLER_TOKEN", ""); token != "" {
		auth = session.TokenAuthorizer{Token: token}
	} else {
		log.Warn().Msg("CONTROLLER_TOKEN not set, any caller may control sessions")
	}
	services.Run = session.NewService(services.App, auth)

	return services, nil
}

// Close stops the session runners and the event feed
func (s *Services) Close() {
	s.App.Close()
	if s.Feed != nil {
		if err := s.Feed.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event feed")
		}
	}
}
