package api

import (
	"context"
	"errors"
	"net/http"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/usecase"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardService is the use case surface the handler needs.
type DashboardService interface {
	Build(ctx context.Context, p usecase.DashboardParams) (*models.OutputDataset, error)
	Indicators() []models.Indicator
	Periods() []models.Period
	ClearCache(ctx context.Context) error
}

// DashboardEchoHandler serves the dashboard API.
type DashboardEchoHandler struct {
	logger  *xlogger.Logger
	svc     DashboardService
	limiter echo.MiddlewareFunc
}

// NewDashboardEchoHandler creates the handler. limiter may be nil.
func NewDashboardEchoHandler(logger *xlogger.Logger, svc DashboardService, limiter echo.MiddlewareFunc) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{logger: logger, svc: svc, limiter: limiter}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.GET("/dashboard", h.Dashboard, h.limiter)
	} else {
		g.GET("/dashboard", h.Dashboard)
	}
	g.GET("/indicators", h.Indicators)
	g.GET("/periods", h.Periods)
	g.POST("/cache/clear", h.ClearCache)
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.DashboardParams{
		Indicators: util.SplitList(req.Indicators),
		Period:     req.Period,
		Refresh:    req.Refresh,
	}
	if req.Reference != "" {
		ref, err := util.ParseDate(req.Reference)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid reference date %q", req.Reference))
		}
		params.Reference = ref
	}

	res, err := h.svc.Build(c.Request().Context(), params)
	if err != nil {
		return h.buildError(c, req, err)
	}
	if len(res.Missing) > 0 {
		h.logger.Debug("dashboard partial result",
			xlogger.String("period", string(res.Period)),
			xlogger.Int("missing", len(res.Missing)),
		)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) buildError(c echo.Context, req *models.DashboardRequest, err error) error {
	var unknown *usecase.UnknownIndicatorsError
	switch {
	case errors.Is(err, models.ErrInvalidPeriodToken):
		return xhttp.AppErrorResponse(c, xhttp.InvalidPeriodError(req.Period, h.periodTokens()).WithError(err))
	case errors.As(err, &unknown):
		return xhttp.AppErrorResponse(c, xhttp.UnknownIndicatorError(unknown.Names).WithError(err))
	case errors.Is(err, models.ErrInvalidRange):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("dashboard build timed out", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("dashboard build timed out").WithError(err))
	}
	h.logger.Error("dashboard usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *DashboardEchoHandler) periodTokens() []string {
	ps := h.svc.Periods()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func (h *DashboardEchoHandler) Indicators(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Indicators())
}

func (h *DashboardEchoHandler) Periods(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Periods())
}

func (h *DashboardEchoHandler) ClearCache(c echo.Context) error {
	if err := h.svc.ClearCache(c.Request().Context()); err != nil {
		h.logger.Error("cache clear failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("cache unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]bool{"cleared": true})
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
