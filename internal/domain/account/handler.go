package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthwatch/healthwatch/internal/platform/auth"
	"github.com/healthwatch/healthwatch/internal/platform/db"
	"github.com/healthwatch/healthwatch/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAuthRoutes mounts login and logout on g. loginMW wraps only the
// login route, typically with a rate limiter.
func (h *Handler) RegisterAuthRoutes(g *echo.Group, loginMW ...echo.MiddlewareFunc) {
	g.POST("/login", h.Login, loginMW...)
	g.POST("/logout", h.Logout)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireCapability(auth.CapManageUsers))
	g.GET("/accounts", h.ListAccounts)
	g.GET("/accounts/:id", h.GetAccount)
	g.POST("/accounts", h.CreateAccount)
	g.PUT("/accounts/:id/active", h.SetActive)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.Username == "" || in.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	tok, err := h.svc.Login(c.Request().Context(), in)
	if errors.Is(err, ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.svc.Logout(c.Request().Context(), claims); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "could not revoke token").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateAccount(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.CreateAccount(c.Request().Context(), in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAccount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAccount(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAccounts(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAccounts(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []*Account{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c))
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
	}
	if !*req.Active && id.String() == auth.UserIDFromContext(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot deactivate your own account")
	}
	a, err := h.svc.SetActive(c.Request().Context(), id, *req.Active)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func toHTTPError(err error) error {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, ErrUsernameTaken.Error())
	case db.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "account not found")
	case errors.Is(err, ErrRevocationFailed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, ErrRevocationFailed.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}
