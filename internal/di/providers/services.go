package providers

import (
	"github.com/samber/do/v2"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/ingest"
	"github.com/sambooru/sambooru-server/internal/logger"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/query"
	"github.com/sambooru/sambooru-server/internal/ratelimit"
	"github.com/sambooru/sambooru-server/internal/service"
	"github.com/sambooru/sambooru-server/internal/tagger"
)

// ProvideMediaStorage provides the asset/preview storage layout.
func ProvideMediaStorage(i do.Injector) (*media.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return media.NewStorage(cfg.ImagesPath(), cfg.ThumbnailsPath())
}

// ProvideMediaProcessor provides the media processor.
func ProvideMediaProcessor(i do.Injector) (*media.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*media.Storage](i)

	return media.NewProcessor(storage, cfg.Transcode, log.Logger)
}

// ProvideCatalog provides the tag catalog.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return catalog.New(storeHandle.Store, log.Logger), nil
}

// ProvideTagger provides the Ollama auto-tagger.
func ProvideTagger(i do.Injector) (*tagger.Tagger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return tagger.New(cfg.Tagger, log.Logger), nil
}

// ProvidePipeline provides the ingestion pipeline.
func ProvidePipeline(i do.Injector) (*ingest.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	proc := do.MustInvoke[*media.Processor](i)
	tag := do.MustInvoke[*tagger.Tagger](i)

	return ingest.New(storeHandle.Store, cat, proc, tag, cfg.Upload.MaxConcurrent, log.Logger), nil
}

// ProvideQueryEngine provides the tag search engine.
func ProvideQueryEngine(i do.Injector) (*query.Engine, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return query.New(storeHandle.Store, log.Logger), nil
}

// ProvidePostService provides the post management service.
func ProvidePostService(i do.Injector) (*service.PostService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	proc := do.MustInvoke[*media.Processor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPostService(storeHandle.Store, cat, proc, log.Logger), nil
}

// ProvideUploadLimiter provides the per-user upload rate limiter.
func ProvideUploadLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.PerMinute(cfg.Upload.RatePerMinute, cfg.Upload.Burst), nil
}
