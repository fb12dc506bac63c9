package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/sambooru/sambooru-server/internal/api"
	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/ingest"
	"github.com/sambooru/sambooru-server/internal/logger"
	"github.com/sambooru/sambooru-server/internal/query"
	"github.com/sambooru/sambooru-server/internal/ratelimit"
	"github.com/sambooru/sambooru-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	postService := do.MustInvoke[*service.PostService](i)
	pipeline := do.MustInvoke[*ingest.Pipeline](i)
	engine := do.MustInvoke[*query.Engine](i)
	uploads := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)

	handler := api.NewServer(storeHandle.Store, cat, postService, pipeline, engine, uploads, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
