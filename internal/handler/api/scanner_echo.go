package api

import (
	"errors"

	"GoldenScan/internal/domain/models"
	"GoldenScan/internal/services/classify"
	"GoldenScan/internal/usecase"
	xhttp "GoldenScan/pkg/http"
	xlogger "GoldenScan/pkg/logger"
	"GoldenScan/pkg/util"

	"github.com/labstack/echo/v4"
)

// ScannerEchoHandler exposes the scanner's read views and the runtime
// alert and preference configuration over HTTP.
type ScannerEchoHandler struct {
	logger     *xlogger.Logger
	scanner    *usecase.Scanner
	ledger     *usecase.Ledger
	dispatcher *usecase.Dispatcher
	prefs      *usecase.PreferenceStore
}

func NewScannerEchoHandler(
	logger *xlogger.Logger,
	scanner *usecase.Scanner,
	ledger *usecase.Ledger,
	dispatcher *usecase.Dispatcher,
	prefs *usecase.PreferenceStore,
) *ScannerEchoHandler {
	return &ScannerEchoHandler{
		logger:     logger,
		scanner:    scanner,
		ledger:     ledger,
		dispatcher: dispatcher,
		prefs:      prefs,
	}
}

func (h *ScannerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/tickers", h.Tickers)
	g.GET("/ledger", h.Ledger)
	g.GET("/stats", h.Stats)
	g.POST("/stats/reset", h.ResetStats)
	g.GET("/preferences", h.GetPreferences)
	g.PUT("/preferences", h.PutPreferences)
	g.PUT("/alerts/config", h.PutAlertConfig)
	g.POST("/alerts/test", h.TestAlert)
}

func (h *ScannerEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals := h.scanner.Signals(models.SignalKind(req.Kind), classify.SortKey(req.Sort))
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *ScannerEchoHandler) Tickers(c echo.Context) error {
	tickers := h.scanner.Tickers()
	return xhttp.ListResponse(c, tickers, int64(len(tickers)))
}

func (h *ScannerEchoHandler) Ledger(c echo.Context) error {
	req := &models.LedgerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries := h.ledger.View()
	if req.ActiveOnly {
		open := entries[:0]
		for _, e := range entries {
			if e.StillActive {
				open = append(open, e)
			}
		}
		entries = open
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *ScannerEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.ledger.Stats())
}

func (h *ScannerEchoHandler) ResetStats(c echo.Context) error {
	h.ledger.ResetStats(c.Request().Context())
	return xhttp.SuccessResponse(c, h.ledger.Stats())
}

func (h *ScannerEchoHandler) GetPreferences(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.prefs.Get(c.Request().Context()))
}

func (h *ScannerEchoHandler) PutPreferences(c echo.Context) error {
	req := &models.PreferencesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	prefs := models.Preferences{AudioAlerts: req.AudioAlerts}
	if err := h.prefs.Set(c.Request().Context(), prefs); err != nil {
		h.logger.Error("preferences update failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, prefs)
}

func (h *ScannerEchoHandler) PutAlertConfig(c echo.Context) error {
	req := &models.AlertConfigRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cfg := h.dispatcher.Config()
	if req.BotToken != "" {
		cfg.BotToken = req.BotToken
	}
	if req.ChatIDs != "" {
		cfg.ChatIDs = util.SplitCSV(req.ChatIDs)
	}
	cfg.Enabled = req.Enabled

	if err := h.dispatcher.SetConfig(c.Request().Context(), cfg); err != nil {
		h.logger.Error("alert config update failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	// Never echo the token back.
	cfg.BotToken = ""
	return xhttp.SuccessResponse(c, cfg)
}

func (h *ScannerEchoHandler) TestAlert(c echo.Context) error {
	req := &models.AlertTestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.dispatcher.SendTest(c.Request().Context(), req.Message); err != nil {
		h.logger.Error("test alert failed", xlogger.Error(err))
		if errors.Is(err, usecase.ErrNotConfigured) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "sent"})
}
