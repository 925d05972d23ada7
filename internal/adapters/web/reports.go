package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"profitscope/internal/app"
	"profitscope/internal/engine"
)

// reportRequest assembles the shared query parameters: organization scope and
// reporting window. Missing dates stay zero so the window validation in the
// engine produces the canonical error.
func (h *Handler) reportRequest(r *http.Request) (app.ReportRequest, error) {
	req := app.ReportRequest{OrganizationID: h.defaultOrg}
	if org := r.URL.Query().Get("org"); org != "" {
		req.OrganizationID = org
	}

	var err error
	if req.From, err = parseDate(r.URL.Query().Get("from")); err != nil {
		return req, err
	}
	req.To, err = parseDate(r.URL.Query().Get("to"))
	return req, err
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp. Empty input
// maps to the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", engine.ErrBadInput, s)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	base, err := h.reportRequest(r)
	if err != nil {
		writeReportError(w, r, err)
		return
	}

	res, err := h.svc.GetOverview(r.Context(), app.OverviewRequest{
		ReportRequest: base,
		Compare:       r.URL.Query().Get("compare") == "true",
	})
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeReport(w, res.Cached, res)
}

func (h *Handler) orders(w http.ResponseWriter, r *http.Request) {
	base, err := h.reportRequest(r)
	if err != nil {
		writeReportError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := engine.OrdersOptions{
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortAsc: q.Get("order") == "asc",
	}
	if opts.Page, err = parseIntParam(q.Get("page")); err != nil {
		writeReportError(w, r, err)
		return
	}
	if opts.PageSize, err = parseIntParam(q.Get("page_size")); err != nil {
		writeReportError(w, r, err)
		return
	}

	res, err := h.svc.GetOrdersAnalytics(r.Context(), app.OrdersRequest{
		ReportRequest: base,
		Compare:       q.Get("compare") == "true",
		Options:       opts,
	})
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeReport(w, res.Cached, res)
}

func (h *Handler) pnl(w http.ResponseWriter, r *http.Request) {
	base, err := h.reportRequest(r)
	if err != nil {
		writeReportError(w, r, err)
		return
	}

	g := engine.GranularityMonthly
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		g = engine.Granularity(raw)
	}

	res, err := h.svc.GetPnL(r.Context(), app.PnLRequest{ReportRequest: base, Granularity: g})
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeReport(w, res.Cached, res)
}

func (h *Handler) platforms(w http.ResponseWriter, r *http.Request) {
	base, err := h.reportRequest(r)
	if err != nil {
		writeReportError(w, r, err)
		return
	}

	res, err := h.svc.GetPlatformMetrics(r.Context(), base)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeReport(w, res.Cached, res)
}

func (h *Handler) channels(w http.ResponseWriter, r *http.Request) {
	base, err := h.reportRequest(r)
	if err != nil {
		writeReportError(w, r, err)
		return
	}

	res, err := h.svc.GetChannelRevenue(r.Context(), base)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeReport(w, res.Cached, res)
}

func parseIntParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: not a number %q", engine.ErrBadInput, s)
	}
	return n, nil
}

// writeReport writes the payload with an X-Cache header so clients can tell
// a fresh computation from a cached one.
func writeReport(w http.ResponseWriter, cached bool, v any) {
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, v)
}
