// Package report serves the static chart report: three pre-rendered charts
// embedded in one HTML page.
package report

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindImage Kind = "image"
	KindHTML  Kind = "html"
)

// Chart is one report figure. File is empty when no rendering was found.
type Chart struct {
	Name    string
	Title   string
	Caption string
	File    string
	Kind    Kind
}

func (c Chart) Missing() bool { return c.File == "" }

// Charts lists the report figures in page order.
var Charts = []Chart{
	{
		Name:    "area_chart",
		Title:   "Arms Transfers to Ukraine over Time",
		Caption: "Delivered TIV per year, stacked by supplier.",
	},
	{
		Name:    "correlation_matrix",
		Title:   "Correlation Matrix",
		Caption: "Pairwise correlation of the numeric transfer attributes.",
	},
	{
		Name:    "hexbin",
		Title:   "Hexagonal Binning",
		Caption: "Density of transfers by delivery year and TIV.",
	},
}

var extensions = map[string]Kind{
	".svg":  KindImage,
	".png":  KindImage,
	".jpg":  KindImage,
	".html": KindHTML,
}

// extension probe order
var probe = []string{".svg", ".png", ".jpg", ".html"}

// Discover resolves each chart to the first rendering present in dir.
// It runs on every request and stays quiet; NewHandler reports what is missing.
func Discover(dir string) []Chart {
	out := make([]Chart, len(Charts))
	for i, c := range Charts {
		for _, ext := range probe {
			name := c.Name + ext
			if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
				c.File = name
				c.Kind = extensions[ext]
				break
			}
		}
		out[i] = c
	}
	return out
}

type Handler struct {
	dir string
}

func NewHandler(dir string) *Handler {
	for _, c := range Discover(dir) {
		if c.Missing() {
			log.WithFields(log.Fields{"chart": c.Name, "dir": dir}).Warn("report chart not found")
		}
	}
	return &Handler{dir: dir}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/report", h.Page)
	e.GET("/report/charts/:file", h.ChartFile)
}

func (h *Handler) Page(c echo.Context) error {
	return c.Render(http.StatusOK, "report.html", map[string]interface{}{
		"Title":  "Arms Transfers to Ukraine: Static Charts",
		"Charts": Discover(h.dir),
	})
}

// ChartFile only serves files that resolve to a known chart.
func (h *Handler) ChartFile(c echo.Context) error {
	name := c.Param("file")
	for _, chart := range Discover(h.dir) {
		if !chart.Missing() && chart.File == name {
			return c.File(filepath.Join(h.dir, chart.File))
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "chart not found")
}
