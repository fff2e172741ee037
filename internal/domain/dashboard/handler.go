package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthwatch/healthwatch/internal/domain/stats"
	"github.com/healthwatch/healthwatch/internal/platform/auth"
	"github.com/healthwatch/healthwatch/internal/platform/reporting"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"pct": percent,
}).ParseFS(templateFS, "templates/dashboard.html"))

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the JSON and report endpoints on api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireCapability(auth.CapViewDashboard))
	g.GET("/dashboard", h.GetOverview)
	g.GET("/trends/monthly", h.GetMonthlyTrend)
	g.GET("/reports/health.pdf", h.GetPDFReport)
	g.GET("/reports/health.xlsx", h.GetXLSXReport)
}

// RegisterPageRoutes mounts the HTML dashboard outside the API prefix.
func (h *Handler) RegisterPageRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	mw = append(mw, auth.RequireCapability(auth.CapViewDashboard))
	e.GET("/dashboard", h.GetPage, mw...)
}

func (h *Handler) GetOverview(c echo.Context) error {
	ov, err := h.svc.Overview(c.Request().Context())
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *Handler) GetMonthlyTrend(c echo.Context) error {
	t, err := h.svc.Trend(c.Request().Context())
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, t)
}

type pageData struct {
	Title string
	*Overview
	Trend    []stats.MonthlyPoint
	MaxTrend float64
	Username string
}

func (h *Handler) GetPage(c echo.Context) error {
	ctx := c.Request().Context()
	ov, err := h.svc.Overview(ctx)
	if err != nil {
		return internalError(err)
	}
	points, err := h.svc.MonthlyPoints(ctx)
	if err != nil {
		return internalError(err)
	}

	data := pageData{Title: reporting.DefaultTitle, Overview: ov, Trend: points, Username: auth.UsernameFromContext(ctx)}
	if ov.Clinic != nil {
		data.Title = ov.Clinic.Name
	}
	for _, p := range points {
		if p.AverageScore > data.MaxTrend {
			data.MaxTrend = p.AverageScore
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return internalError(fmt.Errorf("render dashboard: %w", err))
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) GetPDFReport(c echo.Context) error {
	return h.sendReport(c, mimePDF, "pdf", reporting.RenderPDF)
}

func (h *Handler) GetXLSXReport(c echo.Context) error {
	return h.sendReport(c, mimeXLSX, "xlsx", reporting.RenderXLSX)
}

func (h *Handler) sendReport(c echo.Context, mime, ext string, render func(reporting.Report) ([]byte, error)) error {
	ctx := c.Request().Context()
	r, err := h.svc.Report(ctx, auth.UsernameFromContext(ctx))
	if err != nil {
		return internalError(err)
	}
	out, err := render(r)
	if err != nil {
		return internalError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="health-report-%s.%s"`, r.Date.Format("2006-01-02"), ext))
	return c.Blob(http.StatusOK, mime, out)
}

func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// percent is part/whole as an integer percentage, 0 when whole is 0.
func percent(part, whole interface{}) int {
	p, w := toFloat(part), toFloat(whole)
	if w <= 0 {
		return 0
	}
	return int(p / w * 100)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
