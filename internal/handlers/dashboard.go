package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/view"
)

type DashboardHandler struct {
	Svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{Svc: svc}
}

// Home: GET / renders the dashboard. Query params select the chart
// period (1m_daily, 3m, 6m, custom + start/end) and the paid filter.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = services.PeriodMonthDaily
	}
	paidFilter := q.Get("status")
	if paidFilter == "" {
		paidFilter = services.FilterAll
	}
	var start, end time.Time
	if period == services.PeriodCustom {
		start, _ = time.Parse("2006-01-02", q.Get("start_date"))
		end, _ = time.Parse("2006-01-02", q.Get("end_date"))
	}

	stats, err := h.Svc.Stats(now)
	if err != nil {
		fail(w, r, err, "/")
		return
	}
	series, err := h.Svc.Series(period, start, end, paidFilter, now)
	if err != nil {
		fail(w, r, err, "/")
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"paid_count":   stats.PaidCount,
			"paid_total":   stats.PaidTotal,
			"unpaid_count": stats.UnpaidCount,
			"unpaid_due":   stats.UnpaidDue,
			"month_count":  stats.MonthCount,
			"month_total":  stats.MonthTotal,
			"client_count": stats.ClientCount,
			"low_stock":    stats.LowStock,
			"series":       series,
		})
		return
	}

	labels := make([]string, len(series))
	values := make([]float64, len(series))
	for i, p := range series {
		labels[i] = p.Label
		values[i], _ = p.Total.Float64()
	}
	labelsJSON, _ := json.Marshal(labels)
	valuesJSON, _ := json.Marshal(values)
	data := map[string]any{
		"Stats":       stats,
		"ChartLabels": template.JS(labelsJSON),
		"ChartValues": template.JS(valuesJSON),
		"Period":      period,
		"Status":      paidFilter,
		"StartDate":   q.Get("start_date"),
		"EndDate":     q.Get("end_date"),
		"Flash":       httpx.PopFlash(w, r),
	}
	_ = view.Render(w, r, "home.html", data)
}
