package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

// Dashboard read path: everything is derived from existing rows and
// recomputed per request, no caching.

// Paid filters for the invoice series.
const (
	FilterAll    = "all"
	FilterPaid   = "paid"
	FilterUnpaid = "unpaid"
)

// Series periods.
const (
	PeriodMonthDaily = "1m_daily"
	PeriodThreeMonth = "3m"
	PeriodSixMonth   = "6m"
	PeriodCustom     = "custom"
)

type RevenueEntry struct {
	ID      uint
	Name    string
	Revenue decimal.Decimal
}

type SeriesPoint struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

type DashboardStats struct {
	PaidCount    int64
	PaidTotal    decimal.Decimal
	UnpaidCount  int64
	UnpaidDue    decimal.Decimal
	MonthCount   int64
	MonthTotal   decimal.Decimal
	ClientCount  int64
	LowStock     []models.Product
	TopClients   []RevenueEntry
	TopProducts  []RevenueEntry
}

type DashboardService struct {
	DB                *gorm.DB
	LowStockThreshold decimal.Decimal
}

func NewDashboardService(db *gorm.DB, lowStockThreshold int) *DashboardService {
	return &DashboardService{DB: db, LowStockThreshold: decimal.NewFromInt(int64(lowStockThreshold))}
}

func sumTotals(invoices []models.Invoice) decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(inv.Total())
	}
	return sum
}

// Stats computes the scalar dashboard counters: paid/unpaid counts and
// sums, current-month volume, client count, low-stock products and the
// trailing-30-day top clients and products by revenue.
func (s *DashboardService) Stats(now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{
		PaidTotal:  decimal.Zero,
		UnpaidDue:  decimal.Zero,
		MonthTotal: decimal.Zero,
	}

	var paid []models.Invoice
	if err := s.DB.Preload("Items").Where("paid = ?", true).Find(&paid).Error; err != nil {
		return nil, err
	}
	stats.PaidCount = int64(len(paid))
	stats.PaidTotal = sumTotals(paid)

	var unpaid []models.Invoice
	if err := s.DB.Preload("Items").Where("paid = ?", false).Find(&unpaid).Error; err != nil {
		return nil, err
	}
	stats.UnpaidCount = int64(len(unpaid))
	for _, inv := range unpaid {
		stats.UnpaidDue = stats.UnpaidDue.Add(inv.AmountDue())
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var month []models.Invoice
	if err := s.DB.Preload("Items").
		Where("issue_date >= ? AND issue_date < ?", monthStart, monthStart.AddDate(0, 1, 0)).
		Find(&month).Error; err != nil {
		return nil, err
	}
	stats.MonthCount = int64(len(month))
	stats.MonthTotal = sumTotals(month)

	if err := s.DB.Model(&models.Client{}).Count(&stats.ClientCount).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("stock <= ?", s.LowStockThreshold).Order("stock asc").Find(&stats.LowStock).Error; err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -30)
	var err error
	if stats.TopClients, err = s.topClients(since); err != nil {
		return nil, err
	}
	if stats.TopProducts, err = s.topProducts(since); err != nil {
		return nil, err
	}
	return stats, nil
}

type revenueRow struct {
	ID      uint
	Name    string
	Revenue float64
}

func (s *DashboardService) topClients(since time.Time) ([]RevenueEntry, error) {
	var rows []revenueRow
	err := s.DB.Raw(`
		SELECT c.id AS id, c.name AS name, SUM(ii.quantity * ii.unit_price) AS revenue
		FROM clients c
		JOIN invoices i ON i.client_id = c.id
		JOIN invoice_items ii ON ii.invoice_id = i.id
		WHERE i.issue_date >= ?
		GROUP BY c.id, c.name
		HAVING revenue > 0
		ORDER BY revenue DESC
		LIMIT 10`, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func (s *DashboardService) topProducts(since time.Time) ([]RevenueEntry, error) {
	var rows []revenueRow
	err := s.DB.Raw(`
		SELECT p.id AS id, p.name AS name, SUM(ii.quantity * ii.unit_price) AS revenue
		FROM products p
		JOIN invoice_items ii ON ii.product_id = p.id
		JOIN invoices i ON i.id = ii.invoice_id
		WHERE i.issue_date >= ?
		GROUP BY p.id, p.name
		HAVING revenue > 0
		ORDER BY revenue DESC
		LIMIT 10`, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func toEntries(rows []revenueRow) []RevenueEntry {
	entries := make([]RevenueEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, RevenueEntry{ID: r.ID, Name: r.Name, Revenue: decimal.NewFromFloat(r.Revenue).Round(2)})
	}
	return entries
}

func (s *DashboardService) invoicesBetween(from, to time.Time, paidFilter string) ([]models.Invoice, error) {
	q := s.DB.Preload("Items").Where("issue_date >= ? AND issue_date < ?", from, to)
	switch paidFilter {
	case FilterPaid:
		q = q.Where("paid = ?", true)
	case FilterUnpaid:
		q = q.Where("paid = ?", false)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Series produces the time-bucketed invoice totals for the dashboard
// chart. Daily buckets for the current month, otherwise one bucket per
// month over the requested range.
func (s *DashboardService) Series(period string, start, end time.Time, paidFilter string, now time.Time) ([]SeriesPoint, error) {
	switch period {
	case PeriodMonthDaily:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return s.dailySeries(monthStart, monthStart.AddDate(0, 1, 0), paidFilter)
	case PeriodThreeMonth:
		return s.monthlySeries(now.AddDate(0, -2, 0), now, paidFilter, now.Location())
	case PeriodSixMonth:
		return s.monthlySeries(now.AddDate(0, -5, 0), now, paidFilter, now.Location())
	case PeriodCustom:
		if start.IsZero() || end.IsZero() || end.Before(start) {
			return nil, &ValidationError{Field: "period", Reason: "invalid_range"}
		}
		return s.monthlySeries(start, end, paidFilter, now.Location())
	default:
		return nil, &ValidationError{Field: "period", Reason: "invalid_choice"}
	}
}

func (s *DashboardService) dailySeries(monthStart, monthEnd time.Time, paidFilter string) ([]SeriesPoint, error) {
	invoices, err := s.invoicesBetween(monthStart, monthEnd, paidFilter)
	if err != nil {
		return nil, err
	}
	days := monthEnd.Add(-time.Hour).Day()
	points := make([]SeriesPoint, days)
	for i := range points {
		points[i] = SeriesPoint{Label: time.Date(monthStart.Year(), monthStart.Month(), i+1, 0, 0, 0, 0, monthStart.Location()).Format("2"), Total: decimal.Zero}
	}
	for _, inv := range invoices {
		d := inv.IssueDate.Day()
		if d >= 1 && d <= days {
			points[d-1].Total = points[d-1].Total.Add(inv.Total())
		}
	}
	return points, nil
}

func (s *DashboardService) monthlySeries(start, end time.Time, paidFilter string, loc *time.Location) ([]SeriesPoint, error) {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, loc)
	invoices, err := s.invoicesBetween(first, last.AddDate(0, 1, 0), paidFilter)
	if err != nil {
		return nil, err
	}
	var points []SeriesPoint
	index := map[string]int{}
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		label := m.Format("Jan/06")
		index[m.Format("2006-01")] = len(points)
		points = append(points, SeriesPoint{Label: label, Total: decimal.Zero})
	}
	for _, inv := range invoices {
		if i, ok := index[inv.IssueDate.Format("2006-01")]; ok {
			points[i].Total = points[i].Total.Add(inv.Total())
		}
	}
	return points, nil
}
