package services

import (
	"testing"
	"time"
)

func TestDashboardStats(t *testing.T) {
	db := setupTestDB(t)
	user, client, product := seedFixtures(t, db)
	invoices := NewInvoiceService(db)
	dash := NewDashboardService(db, 10)
	now := time.Now()

	paid, err := invoices.Issue(user.ID, IssueInput{
		ClientID: client.ID,
		TaxRate:  dec(t, "17.00"),
		Lines:    []LineInput{{ProductID: product.ID, Quantity: dec(t, "30"), UnitPrice: dec(t, "10.00")}},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := invoices.TogglePaid(user.ID, paid.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := invoices.Issue(user.ID, IssueInput{
		ClientID: client.ID,
		TaxRate:  dec(t, "17.00"),
		Advance:  dec(t, "100.00"),
		Lines:    []LineInput{{ProductID: product.ID, Quantity: dec(t, "10"), UnitPrice: dec(t, "10.00")}},
	}); err != nil {
		t.Fatalf("issue unpaid: %v", err)
	}

	stats, err := dash.Stats(now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PaidCount != 1 || stats.UnpaidCount != 1 {
		t.Fatalf("counts = %d paid / %d unpaid", stats.PaidCount, stats.UnpaidCount)
	}
	if !stats.PaidTotal.Equal(dec(t, "351")) {
		t.Fatalf("paid total = %s, want 351", stats.PaidTotal)
	}
	// 100 subtotal + 17 tax - 100 advance
	if !stats.UnpaidDue.Equal(dec(t, "17")) {
		t.Fatalf("unpaid due = %s, want 17", stats.UnpaidDue)
	}
	if stats.MonthCount != 2 {
		t.Fatalf("month count = %d, want 2", stats.MonthCount)
	}
	if stats.ClientCount != 1 {
		t.Fatalf("client count = %d", stats.ClientCount)
	}
	if len(stats.TopClients) != 1 || !stats.TopClients[0].Revenue.Equal(dec(t, "400")) {
		t.Fatalf("top clients = %+v", stats.TopClients)
	}
	if len(stats.TopProducts) != 1 || stats.TopProducts[0].Name != "Gravilha" {
		t.Fatalf("top products = %+v", stats.TopProducts)
	}
}

func TestDashboardLowStock(t *testing.T) {
	db := setupTestDB(t)
	user, client, product := seedFixtures(t, db)
	invoices := NewInvoiceService(db)
	dash := NewDashboardService(db, 10)

	stats, err := dash.Stats(time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.LowStock) != 0 {
		t.Fatalf("stock 100 should not be low: %+v", stats.LowStock)
	}

	if _, err := invoices.Issue(user.ID, IssueInput{
		ClientID: client.ID,
		Lines:    []LineInput{{ProductID: product.ID, Quantity: dec(t, "95"), UnitPrice: dec(t, "10.00")}},
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	stats, err = dash.Stats(time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.LowStock) != 1 || !stats.LowStock[0].Stock.Equal(dec(t, "5")) {
		t.Fatalf("low stock = %+v", stats.LowStock)
	}
}

func TestDashboardSeries(t *testing.T) {
	db := setupTestDB(t)
	user, client, product := seedFixtures(t, db)
	invoices := NewInvoiceService(db)
	dash := NewDashboardService(db, 10)
	now := time.Now()

	if _, err := invoices.Issue(user.ID, IssueInput{
		ClientID: client.ID,
		TaxRate:  dec(t, "17.00"),
		Lines:    []LineInput{{ProductID: product.ID, Quantity: dec(t, "30"), UnitPrice: dec(t, "10.00")}},
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	daily, err := dash.Series(PeriodMonthDaily, time.Time{}, time.Time{}, FilterAll, now)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	monthEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	if len(daily) != monthEnd.Add(-time.Hour).Day() {
		t.Fatalf("daily buckets = %d", len(daily))
	}
	if !daily[now.Day()-1].Total.Equal(dec(t, "351")) {
		t.Fatalf("today's bucket = %s, want 351", daily[now.Day()-1].Total)
	}

	monthly, err := dash.Series(PeriodSixMonth, time.Time{}, time.Time{}, FilterAll, now)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(monthly) != 6 {
		t.Fatalf("monthly buckets = %d, want 6", len(monthly))
	}
	if !monthly[5].Total.Equal(dec(t, "351")) {
		t.Fatalf("current month bucket = %s, want 351", monthly[5].Total)
	}

	// paid filter excludes the unpaid invoice
	filtered, err := dash.Series(PeriodMonthDaily, time.Time{}, time.Time{}, FilterPaid, now)
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if !filtered[now.Day()-1].Total.Equal(dec(t, "0")) {
		t.Fatalf("paid filter leaked unpaid invoices")
	}

	if _, err := dash.Series("bogus", time.Time{}, time.Time{}, FilterAll, now); err == nil {
		t.Fatalf("invalid period accepted")
	}
	if _, err := dash.Series(PeriodCustom, now, now.AddDate(0, 0, -1), FilterAll, now); err == nil {
		t.Fatalf("inverted custom range accepted")
	}
}
