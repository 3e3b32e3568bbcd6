package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/usecase/issues"
	"supplyguard/internal/usecase/pipeline"
	"supplyguard/internal/usecase/planning"
)

const maxRequestBody = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the issue, planning and event API over HTTP",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()

		addr, _ := cmd.Flags().GetString("addr")
		if strings.TrimSpace(addr) == "" {
			addr = app.Config.HTTP.Addr
		}

		server := &http.Server{
			Addr: addr,
			Handler: newAPIHandler(ctx, apiServices{
				Issues:   app.Issues,
				Planning: app.Planning,
				Events:   app.Pipeline,
				Today:    app.Clock,
			}),
			ReadTimeout:  app.Config.HTTP.ReadTimeout,
			WriteTimeout: app.Config.HTTP.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "api server started", slog.String("addr", addr))
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "api server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve api")
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			logging.Info(ctx, "api server shutting down")
			return errs.Wrap(server.Shutdown(shutdownCtx), "shutdown api")
		}
	}),
}

type issueAPI interface {
	List(ctx context.Context, input issues.ListInput) ([]issues.Issue, error)
	Get(ctx context.Context, issueID string) (issues.Issue, error)
	Search(ctx context.Context, fragment string, limit int) ([]issues.Issue, error)
	Summary(ctx context.Context) (issues.Summary, error)
	CreateManual(ctx context.Context, input issues.ManualIssueInput) (issues.Issue, error)
	Resolve(ctx context.Context, issueID string, notes string) (issues.Issue, error)
	UpdateStatus(ctx context.Context, issueID string, rawStatus string) (issues.Issue, error)
	MergeDuplicates(ctx context.Context) (issues.MergeReport, error)
}

type planningAPI interface {
	CheckFulfillment(ctx context.Context, model string, quantity int, targetDate time.Time) (planning.FeasibilityReport, error)
	AnalyzePartUsage(ctx context.Context, partID string) (planning.UsageReport, error)
	LowStockAlerts(ctx context.Context, threshold int) ([]planning.LowStockAlert, error)
	StockByModel(ctx context.Context, model string) (planning.ModelStockReport, error)
	StockSummary(ctx context.Context) (planning.StockSummary, error)
	SafetyStock(leadTimeDays, dailyDemand float64) (planning.SafetyStockResult, error)
}

type eventAPI interface {
	Process(ctx context.Context, event risk.ClassifiedEvent) (pipeline.Outcome, error)
	ActionLog() *pipeline.ActionLog
}

type apiServices struct {
	Issues   issueAPI
	Planning planningAPI
	Events   eventAPI
	Today    func() time.Time
}

type apiHandler struct {
	ctx context.Context
	svc apiServices
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

type createIssueRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Severity        string `json:"severity"`
	PartID          string `json:"part_id"`
	OrderID         string `json:"order_id"`
	SourceReference string `json:"source_reference"`
	AssignedTo      string `json:"assigned_to"`
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type actionEntryResponse struct {
	pipeline.ActionEntry
	Text string `json:"text"`
}

// newAPIHandler routes requests; ctx carries the logger used for request logs.
func newAPIHandler(ctx context.Context, svc apiServices) http.Handler {
	if svc.Today == nil {
		svc.Today = time.Now
	}
	h := &apiHandler{ctx: logging.WithComponent(ctx, "cmd.serve"), svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/issues", func(r chi.Router) {
		r.Get("/", h.listIssues)
		r.Post("/", h.createIssue)
		r.Get("/summary", h.issueSummary)
		r.Get("/search", h.searchIssues)
		r.Post("/merge", h.mergeIssues)
		r.Get("/{issueID}", h.getIssue)
		r.Post("/{issueID}/resolve", h.resolveIssue)
		r.Post("/{issueID}/status", h.updateIssueStatus)
	})

	r.Post("/events", h.processEvent)
	r.Get("/actions", h.listActions)

	r.Get("/fulfillment", h.checkFulfillment)
	r.Get("/parts/low-stock", h.lowStock)
	r.Get("/parts/summary", h.stockSummary)
	r.Get("/parts/{partID}/usage", h.partUsage)
	r.Get("/models/{model}/stock", h.modelStock)
	r.Get("/safety-stock", h.safetyStock)

	return r
}

func (h *apiHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug(
			h.ctx,
			"api request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// requestContext keeps the caller's cancellation and adds the server logger.
func (h *apiHandler) requestContext(r *http.Request) context.Context {
	return logging.WithLogger(r.Context(), logging.Logger(h.ctx))
}

func (h *apiHandler) listIssues(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	input := issues.ListInput{
		Statuses:   query["status"],
		Severities: query["severity"],
		ActiveOnly: query.Get("all") != "true",
		Limit:      limit,
	}

	list, err := h.svc.Issues.List(h.requestContext(r), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, list)
}

func (h *apiHandler) createIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.svc.Issues.CreateManual(h.requestContext(r), issues.ManualIssueInput{
		Title:           req.Title,
		Description:     req.Description,
		Severity:        req.Severity,
		PartID:          req.PartID,
		OrderID:         req.OrderID,
		SourceReference: req.SourceReference,
		AssignedTo:      req.AssignedTo,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, created)
}

func (h *apiHandler) issueSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Issues.Summary(h.requestContext(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, summary)
}

func (h *apiHandler) searchIssues(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	list, err := h.svc.Issues.Search(h.requestContext(r), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, list)
}

func (h *apiHandler) mergeIssues(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Issues.MergeDuplicates(h.requestContext(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, report)
}

func (h *apiHandler) getIssue(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.Issues.Get(h.requestContext(r), chi.URLParam(r, "issueID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, found)
}

func (h *apiHandler) resolveIssue(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	resolved, err := h.svc.Issues.Resolve(h.requestContext(r), chi.URLParam(r, "issueID"), req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, resolved)
}

func (h *apiHandler) updateIssueStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.svc.Issues.UpdateStatus(h.requestContext(r), chi.URLParam(r, "issueID"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, updated)
}

func (h *apiHandler) processEvent(w http.ResponseWriter, r *http.Request) {
	var event risk.ClassifiedEvent
	if err := decodeBody(r, &event); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(event.SourceReference) == "" {
		event.SourceReference = "http"
	}

	outcome, err := h.svc.Events.Process(h.requestContext(r), event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, outcome)
}

func (h *apiHandler) listActions(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.Events.ActionLog().Entries()
	out := make([]actionEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, actionEntryResponse{ActionEntry: entry, Text: entry.Text()})
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func (h *apiHandler) checkFulfillment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quantity, err := queryInt(query.Get("quantity"), "quantity")
	if err != nil {
		h.writeError(w, err)
		return
	}
	target, err := parseTargetDate(query.Get("date"), h.svc.Today())
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.svc.Planning.CheckFulfillment(h.requestContext(r), query.Get("model"), quantity, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, report)
}

func (h *apiHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r.URL.Query().Get("threshold"), "threshold")
	if err != nil {
		h.writeError(w, err)
		return
	}
	alerts, err := h.svc.Planning.LowStockAlerts(h.requestContext(r), threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, alerts)
}

func (h *apiHandler) stockSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Planning.StockSummary(h.requestContext(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, summary)
}

func (h *apiHandler) partUsage(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Planning.AnalyzePartUsage(h.requestContext(r), chi.URLParam(r, "partID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, report)
}

func (h *apiHandler) modelStock(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Planning.StockByModel(h.requestContext(r), chi.URLParam(r, "model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, report)
}

func (h *apiHandler) safetyStock(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	leadTime, err := queryFloat(query.Get("lead_time"), "lead_time")
	if err != nil {
		h.writeError(w, err)
		return
	}
	demand, err := queryFloat(query.Get("demand"), "demand")
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.svc.Planning.SafetyStock(leadTime, demand)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, result)
}

func (h *apiHandler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(h.ctx, "api request failed", slog.Int("status", status), slog.Any("err", errs.Loggable(err)))
	}
	writeAPIJSON(w, status, apiErrorResponse{Error: err.Error()})
}

func httpStatusFor(err error) int {
	switch errs.Kind(err) {
	case errs.ErrInvalidRequest, errs.ErrInvalidStatus:
		return http.StatusBadRequest
	case errs.ErrNotFound, errs.ErrUnknownModel:
		return http.StatusNotFound
	case errs.ErrInvalidTransition:
		return http.StatusConflict
	case errs.ErrDataUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errs.Invalid("decode request body: %v", err)
	}
	return nil
}

func queryInt(raw, name string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errs.Invalid("%s must be an integer", name)
	}
	return n, nil
}

func queryFloat(raw, name string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errs.Invalid("%s is required", name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, errs.Invalid("%s must be a number", name)
	}
	return f, nil
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default http.addr)")
}
