package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/markdown"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
)

// CommonTemplateData holds fields that are common to all page templates.
// Available in templates as .Common via the TemplateData wrapper.
type CommonTemplateData struct {
	Error       string
	Success     string
	User        *domain.User
	DisplayName string
	CSRFToken   string // CSRF token for form submissions
	StudentID   string // Pre-filled student id for auth forms (from cookie, not URL)
	Settings    PageSettings
}

// PageSettings are the limits and tunables page scripts and forms need.
type PageSettings struct {
	MaxImages           int
	MaxImageSize        int64
	FeedScrollThreshold int
}

// TemplateData wraps page-specific data with common template data.
// Templates access page data via .Data and common data via .Common.
type TemplateData struct {
	Data   any
	Common CommonTemplateData
}

func (h *Handler) initCommonTemplateData(w http.ResponseWriter, r *http.Request) CommonTemplateData {
	secure := h.Public.SecureCookies
	common := CommonTemplateData{
		Error:     middleware.PopFlash(w, r, middleware.FlashError, secure),
		Success:   middleware.PopFlash(w, r, middleware.FlashSuccess, secure),
		StudentID: middleware.PopFlash(w, r, middleware.FlashStudentID, secure),
		CSRFToken: middleware.GetCSRFTokenFromContext(r),
		Settings: PageSettings{
			MaxImages:           h.Public.MaxImages,
			MaxImageSize:        h.Public.MaxImageSize,
			FeedScrollThreshold: h.Public.FeedScrollThreshold,
		},
	}
	if user := session.User(r.Context()); user != nil {
		common.User = user
		common.DisplayName = h.Sessions.DisplayName(r.Context(), *user)
	}
	return common
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.renderTemplateStatus(w, r, http.StatusOK, name, data, "")
}

func (h *Handler) renderTemplateWithError(w http.ResponseWriter, r *http.Request, name string, data any, errMsg string) {
	h.renderTemplateStatus(w, r, http.StatusOK, name, data, errMsg)
}

func (h *Handler) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any, errMsg string) {
	common := h.initCommonTemplateData(w, r)
	if errMsg != "" {
		common.Error = errMsg
	}
	h.execute(w, status, name, TemplateData{Data: data, Common: common})
}

// renderFragment renders a partial page for scripts. Flash messages are
// left for the next full page.
func (h *Handler) renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.execute(w, http.StatusOK, name, TemplateData{
		Data:   data,
		Common: CommonTemplateData{User: session.User(r.Context())},
	})
}

func (h *Handler) execute(w http.ResponseWriter, status int, name string, data TemplateData) {
	tmpl, ok := h.getTemplate(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func sub(a, b int) int { return a - b }
func add(a, b int) int { return a + b }

func bytesToMB(bytes int64) int64 {
	return bytes / (1024 * 1024)
}

func dict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("invalid dict call: number of arguments must be even")
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings")
		}
		m[key] = values[i+1]
	}
	return m, nil
}

// TemplateFuncs are the helpers every template can call.
func TemplateFuncs(tp *markdown.TextProcessor) template.FuncMap {
	return template.FuncMap{
		"sub":        sub,
		"add":        add,
		"dict":       dict,
		"bytesToMB":  bytesToMB,
		"render":     tp.Render,
		"themeTypes": domain.ThemeTypes,
	}
}
