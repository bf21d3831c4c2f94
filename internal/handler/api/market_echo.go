package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/internal/usecase"
	xhttp "EnergyPulse/pkg/http"
	xlogger "EnergyPulse/pkg/logger"
)

// MarketHandler exposes the analytics pipeline over Echo.
type MarketHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.MarketPipeline
}

// NewMarketHandler creates the handler.
func NewMarketHandler(log *xlogger.Logger, pipeline *usecase.MarketPipeline) *MarketHandler {
	return &MarketHandler{logger: log, pipeline: pipeline}
}

// RegisterRoutes attaches all market endpoints under /api.
func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/indicators", h.Indicators)
	g.GET("/forecast", h.Forecast)
	g.GET("/summary", h.Summary)
	g.GET("/correlation", h.Correlation)
	g.GET("/anomalies", h.Anomalies)
	g.GET("/alerts", h.Alerts)
}

// Prices returns the OHLC series for an instrument and optional range.
func (h *MarketHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, err := usecase.ParseTimeArg(req.Start)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := usecase.ParseTimeArg(req.End)
	if err != nil {
		return h.fail(c, err)
	}

	series, err := h.pipeline.GetPrices(c.Request().Context(), req.Instrument, start, end)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, series)
}

// Indicators computes the requested indicator series.
func (h *MarketHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	reqs, err := usecase.ParseIndicatorNames(req.Names, req.Window)
	if err != nil {
		return h.fail(c, err)
	}
	start, err := usecase.ParseTimeArg(req.Start)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := usecase.ParseTimeArg(req.End)
	if err != nil {
		return h.fail(c, err)
	}

	set, err := h.pipeline.GetIndicators(c.Request().Context(), req.Instrument, reqs, start, end)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, set)
}

// Forecast trains a model and projects the requested horizon.
func (h *MarketHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	kind, err := models.ParseModelKind(req.Model)
	if err != nil {
		return h.fail(c, err)
	}

	res, err := h.pipeline.GetForecast(c.Request().Context(), req.Instrument, req.Horizon, kind)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Summary returns the condensed dashboard header view.
func (h *MarketHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	s, err := h.pipeline.GetSummary(c.Request().Context(), req.Instrument)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

// Correlation returns the pairwise correlation matrix for two or more
// instruments over an optional shared range.
func (h *MarketHandler) Correlation(c echo.Context) error {
	req := &models.CorrelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	instruments, err := usecase.ParseInstrumentList(req.Instruments)
	if err != nil {
		return h.fail(c, err)
	}
	start, err := usecase.ParseTimeArg(req.Start)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := usecase.ParseTimeArg(req.End)
	if err != nil {
		return h.fail(c, err)
	}

	matrix, err := h.pipeline.GetCorrelation(c.Request().Context(), instruments, start, end)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, matrix)
}

// Anomalies returns closes whose z-score exceeds the threshold.
func (h *MarketHandler) Anomalies(c echo.Context) error {
	req := &models.AnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, err := usecase.ParseTimeArg(req.Start)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := usecase.ParseTimeArg(req.End)
	if err != nil {
		return h.fail(c, err)
	}

	anomalies, err := h.pipeline.GetAnomalies(c.Request().Context(), req.Instrument, start, end, req.Threshold)
	if err != nil {
		return h.fail(c, err)
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	return xhttp.SuccessResponse(c, anomalies)
}

// Alerts returns alert history for the trailing window.
func (h *MarketHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.pipeline.RecentAlerts(c.Request().Context(), req.Instrument,
		time.Duration(req.Hours)*time.Hour)
	if err != nil {
		return h.fail(c, err)
	}
	if events == nil {
		events = []models.AlertEvent{}
	}
	return xhttp.SuccessResponse(c, events)
}

func (h *MarketHandler) fail(c echo.Context, err error) error {
	h.logger.Error("market request failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, toAppError(err))
}

// toAppError maps domain failures to transport errors. Unknown errors come
// back as opaque 500s.
func toAppError(err error) error {
	switch {
	case errors.Is(err, models.ErrRangeInvalid):
		return xhttp.NewAppError("ERR_RANGE_INVALID", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrConfigInvalid):
		return xhttp.NewAppError("ERR_CONFIG_INVALID", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.NewAppError("ERR_DATA_UNAVAILABLE", "", err.Error(), http.StatusBadGateway).WithError(err)
	case errors.Is(err, models.ErrTrainingFailed):
		return xhttp.NewAppError("ERR_TRAINING_FAILED", "", err.Error(), http.StatusInternalServerError).WithError(err)
	}
	return err
}
