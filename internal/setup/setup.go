package setup

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/config"
	"github.com/hetaoshu/hetaoshu-web/internal/handler"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/markdown"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
	"github.com/hetaoshu/hetaoshu-web/internal/storage/pg"
	redisstorage "github.com/hetaoshu/hetaoshu-web/internal/storage/redis"
	"github.com/hetaoshu/hetaoshu-web/web"
)

const (
	// templates are read from disk instead of the binary in development
	devTemplateDir         = "web/templates"
	templateReloadInterval = 5 * time.Second
	connectTimeout         = 10 * time.Second
	sessionSweepInterval   = time.Hour
)

type Dependencies struct {
	Handler  *handler.Handler
	Auth     *middleware.Auth
	Sessions *session.Manager
	Public   config.Public

	db    *sql.DB
	redis *redis.Client
	// CancelFunc stops background tasks such as the session sweeper.
	CancelFunc context.CancelFunc
}

func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	ctx, cancel := context.WithCancel(context.Background())
	deps := &Dependencies{Public: cfg.Public, CancelFunc: cancel}

	store, err := deps.sessionStore(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	signer, err := session.NewSigner(cfg.Private.SessionSecret)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize cookie signer: %w", err)
	}
	deps.Sessions = session.NewManager(store, signer, cfg.Public.SessionMaxAge, cfg.Public.SecureCookies)
	deps.Sessions.StartSweeper(ctx, sessionSweepInterval)
	deps.Auth = middleware.NewAuth(deps.Sessions, cfg.Public.SecureCookies)

	textProcessor := markdown.New()
	funcs := handler.TemplateFuncs(textProcessor)
	templates, err := web.LoadTemplates(templateFS(cfg.Public.Development), funcs)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	apiClient := apiclient.New(cfg.Public.APIBaseURL, cfg.Public.AuthScheme, cfg.Public.RequestTimeout, session.Token)
	deps.Handler = handler.New(templates, cfg.Public, textProcessor, apiClient, deps.Sessions)

	if cfg.Public.Development {
		startTemplateReloader(ctx, deps.Handler, funcs)
	}

	logger.Log.Info("dependencies initialized",
		"session_backend", cfg.Public.SessionBackend,
		"api_base_url", cfg.Public.APIBaseURL,
		"development", cfg.Public.Development)
	return deps, nil
}

func (d *Dependencies) sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Public.SessionBackend {
	case config.SessionBackendPostgres:
		db, err := pg.Connect(connectCtx, cfg.Private.Pg, pg.LightweightConnectionConfig())
		if err != nil {
			return nil, err
		}
		d.db = db
		return session.NewPostgresStore(connectCtx, db)
	case config.SessionBackendRedis:
		client, err := redisstorage.Connect(connectCtx, cfg.Private.Redis)
		if err != nil {
			return nil, err
		}
		d.redis = client
		return session.NewRedisStore(client, cfg.Public.SessionMaxAge), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// Close stops background work and releases the store connections.
func (d *Dependencies) Close() {
	if d.CancelFunc != nil {
		d.CancelFunc()
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			logger.Log.Error("failed to close database", "error", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			logger.Log.Error("failed to close redis client", "error", err)
		}
	}
}

func templateFS(development bool) fs.FS {
	if development {
		if _, err := os.Stat(devTemplateDir); err == nil {
			return os.DirFS(devTemplateDir)
		}
	}
	return web.Templates()
}

func startTemplateReloader(ctx context.Context, h *handler.Handler, funcs template.FuncMap) {
	ticker := time.NewTicker(templateReloadInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				templates, err := web.LoadTemplates(templateFS(true), funcs)
				if err != nil {
					logger.Log.Error("failed to reload templates", "error", err)
					continue
				}
				h.SetTemplates(templates)
			}
		}
	}()
}
