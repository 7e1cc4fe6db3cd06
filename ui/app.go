package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"oddsrules/adapters/export"
	"oddsrules/adapters/report"
	"oddsrules/domain/rules"
	"oddsrules/internal"
)

//go:embed templates/report.html
var embeddedFiles embed.FS

// App serves the human-readable projections of one rule set
type App struct {
	router    *chi.Mux
	ruleSet   *rules.RuleSet
	templates *template.Template
	logger    *internal.Logger
}

type page struct {
	Title string
	Body  template.HTML
}

// NewApp creates the report UI over rs
func NewApp(rs *rules.RuleSet, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	templates, err := template.ParseFS(embeddedFiles, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		ruleSet:   rs,
		templates: templates,
		logger:    logger.Named("ReportUI"),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// Handler exposes the router so it can be mounted or served directly
func (a *App) Handler() http.Handler { return a.router }

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reports", http.StatusFound)
	})
	a.router.Get("/reports", a.handleReport)
	a.router.Get("/reports/raw", a.handleReportMarkdown)
	a.router.Get("/rules.json", a.handleRulesJSON)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	body := RenderHTML(report.Render(a.ruleSet))
	a.renderTemplate(w, "report.html", page{
		Title: "Rule report " + a.ruleSet.Manifest().RunID.String(),
		Body:  template.HTML(body),
	})
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(report.Render(a.ruleSet))
}

func (a *App) handleRulesJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.Write(&buf, a.ruleSet); err != nil {
		a.logger.Error("export failed: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		a.logger.Error("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// RenderHTML converts report Markdown to HTML. A parser carries state, so one
// is built per call.
func RenderHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}
