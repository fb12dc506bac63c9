// Package di provides dependency injection configuration for the server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/di/providers"
	"github.com/sambooru/sambooru-server/internal/ingest"
	"github.com/sambooru/sambooru-server/internal/logger"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/query"
	"github.com/sambooru/sambooru-server/internal/service"
	"github.com/sambooru/sambooru-server/internal/tagger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Media layer
	do.Provide(injector, providers.ProvideMediaStorage)
	do.Provide(injector, providers.ProvideMediaProcessor)

	// Domain services
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideTagger)
	do.Provide(injector, providers.ProvidePipeline)
	do.Provide(injector, providers.ProvideQueryEngine)
	do.Provide(injector, providers.ProvidePostService)
	do.Provide(injector, providers.ProvideUploadLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*media.Storage](injector)
	_ = do.MustInvoke[*media.Processor](injector)
	_ = do.MustInvoke[*catalog.Catalog](injector)
	_ = do.MustInvoke[*tagger.Tagger](injector)
	_ = do.MustInvoke[*ingest.Pipeline](injector)
	_ = do.MustInvoke[*query.Engine](injector)
	_ = do.MustInvoke[*service.PostService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
