// Package service contains the business logic layer.
package service

import (
	"log/slog"

	"oaigate/internal/config"
	"oaigate/internal/rendezvous"
	"oaigate/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Image    *ImageService
	Callback *CallbackService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, registry *rendezvous.Registry, logger *slog.Logger) *Services {
	callbackSvc := NewCallbackService(repos, logger)
	imageSvc := NewImageService(cfg, repos, registry, callbackSvc, logger)

	return &Services{
		Image:    imageSvc,
		Callback: callbackSvc,
	}
}
