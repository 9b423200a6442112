package web

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"armsdash/internal/engine"
)

//go:embed templates/*.html
var templates embed.FS

// Renderer executes the embedded page templates for echo's c.Render.
type Renderer struct {
	t *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{t: template.Must(template.ParseFS(templates, "templates/*.html"))}
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

type dashboardPage struct {
	Title         string
	Periods       []engine.Period
	DefaultPeriod string
	MapStyle      string
}

// RegisterRoutes serves the dashboard page. The page itself only reads the JSON API.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", Dashboard)
}

func Dashboard(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", dashboardPage{
		Title:         "Weapons Transferred to Ukraine",
		Periods:       engine.Periods,
		DefaultPeriod: engine.PeriodAll.Name,
		MapStyle:      engine.NormalizeMapStyle(c.QueryParam("map_style")),
	})
}
