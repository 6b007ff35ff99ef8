package handler

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/carousel"
	"github.com/hetaoshu/hetaoshu-web/internal/config"
	"github.com/hetaoshu/hetaoshu-web/internal/crypto"
	"github.com/hetaoshu/hetaoshu-web/internal/feed"
	"github.com/hetaoshu/hetaoshu-web/internal/markdown"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
)

type Handler struct {
	Public        config.Public
	TextProcessor *markdown.TextProcessor
	APIClient     *apiclient.APIClient
	Sessions      *session.Manager
	Passwords     *crypto.PasswordEncrypter
	Prober        *carousel.Prober
	FeedGate      *feed.Gate

	mu        sync.RWMutex
	templates map[string]*template.Template
}

func New(templates map[string]*template.Template, publicCfg config.Public, textProcessor *markdown.TextProcessor, apiClient *apiclient.APIClient, sessions *session.Manager) *Handler {
	return &Handler{
		Public:        publicCfg,
		TextProcessor: textProcessor,
		APIClient:     apiClient,
		Sessions:      sessions,
		Passwords:     crypto.NewPasswordEncrypter(apiClient.PublicKey),
		Prober:        carousel.NewProber(publicCfg.ProbeTimeout),
		FeedGate:      feed.NewGate(),
		templates:     templates,
	}
}

// SetTemplates swaps the template set, e.g. when templates are reloaded in
// development.
func (h *Handler) SetTemplates(templates map[string]*template.Template) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.templates = templates
}

func (h *Handler) getTemplate(name string) (*template.Template, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tmpl, ok := h.templates[name]
	return tmpl, ok
}

func (h *Handler) imageLimits() validation.Limits {
	return validation.Limits{MaxImages: h.Public.MaxImages, MaxImageSize: h.Public.MaxImageSize}
}

func (h *Handler) feedOptions() feed.Options {
	return feed.Options{
		SummaryLength: h.Public.SummaryLength,
		MaxAspect:     h.Public.CarouselMaxAspect,
		DefaultAspect: h.Public.CarouselDefaultAspect,
	}
}

func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
