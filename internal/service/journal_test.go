package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/edgelog/internal/analytics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestCreateTradeRecomputesRiskAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "trader")

	first, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day, f64(80)))
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, models.ResultLoss, first.Result)
	require.NotNil(t, first.RMultiple)
	assert.InDelta(t, -2, *first.RMultiple, 1e-9)

	_, err = e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day.Add(time.Hour), f64(80)))
	require.NoError(t, err)

	tracker, err := e.risks.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 2, tracker.TradesTaken)
	assert.Equal(t, 2, tracker.Losses)
	assert.InDelta(t, -4, tracker.NetR, 1e-9)
	assert.InDelta(t, 4, tracker.RLost, 1e-9)
	assert.True(t, tracker.LossLimitHit)
	assert.False(t, tracker.TradeLimitHit)

	assert.Contains(t, e.events.types(), realtime.EventRiskUpdated)
	assert.Contains(t, e.events.types(), realtime.EventTradeCreated)
}

func TestOpenTradesCountTowardsTradeLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "busy")

	for i := 0; i < 5; i++ {
		_, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day.Add(time.Duration(i)*time.Minute), nil))
		require.NoError(t, err)
	}

	tracker, err := e.risks.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 5, tracker.TradesTaken)
	assert.Zero(t, tracker.NetR)
	assert.True(t, tracker.TradeLimitHit)
	assert.True(t, tracker.Locked())
}

func TestRiskTrackerUsesUserTimezone(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "newyorker")
	u.Timezone = "America/New_York"
	require.NoError(t, e.users.Update(u))

	entry := time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC)
	_, err := e.tradeSvc.CreateTrade(context.Background(), u.ID, legacyTrade(entry, f64(120)))
	require.NoError(t, err)

	tracker, err := e.risks.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.Wins)
	assert.InDelta(t, 2, tracker.NetR, 1e-9)
	assert.Zero(t, tracker.RLost)
}

func TestUpdateTradeRebuildsBothDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "mover")

	tr, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day, f64(80)))
	require.NoError(t, err)

	_, err = e.tradeSvc.UpdateTrade(ctx, u.ID, tr.ID, legacyTrade(day.AddDate(0, 0, 1), f64(80)))
	require.NoError(t, err)

	before, err := e.risks.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Zero(t, before.TradesTaken)
	assert.False(t, before.LossLimitHit)

	after, err := e.risks.GetByDay(u.ID, "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 1, after.TradesTaken)
}

func TestTradeOwnershipAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner")
	other := e.user(t, "other")

	tr, err := e.tradeSvc.CreateTrade(ctx, owner.ID, legacyTrade(day, nil))
	require.NoError(t, err)

	err = e.tradeSvc.DeleteTrade(ctx, other.ID, tr.ID)
	assert.ErrorIs(t, err, repository.ErrTradeNotFound)

	bad := legacyTrade(day, f64(110))
	earlier := day.Add(-time.Hour)
	bad.ExitTime = &earlier
	_, err = e.tradeSvc.UpdateTrade(ctx, owner.ID, tr.ID, bad)
	assert.ErrorIs(t, err, service.ErrInvalidTradeTimes)

	zeroRisk := legacyTrade(day, nil)
	zeroRisk.StopLoss = zeroRisk.EntryPrice
	_, err = e.tradeSvc.CreateTrade(ctx, owner.ID, zeroRisk)
	assert.ErrorIs(t, err, models.ErrZeroRisk)

	require.NoError(t, e.tradeSvc.DeleteTrade(ctx, owner.ID, tr.ID))
	assert.Contains(t, e.events.types(), realtime.EventTradeDeleted)
}

func eliteTrade(entry time.Time, exit float64) *service.EliteTradeRequest {
	out := entry.Add(30 * time.Minute)
	return &service.EliteTradeRequest{
		Symbol:               "nq",
		Direction:            models.DirectionShort,
		SetupGrade:           models.GradeA,
		EntryTime:            entry,
		ExitTime:             &out,
		HTFBias:              "Bearish",
		EntryModel:           "fvg",
		ConfirmationPresent:  bptr(true),
		LiquiditySweep:       bptr(true),
		RulesFollowed:        bptr(true),
		EmotionalStateBefore: "Calm",
		EntryPrice:           100,
		StopLoss:             110,
		ExitPrice:            &exit,
		Mistakes:             []string{"Late Entry", "late entry "},
	}
}

func TestEliteTradeSetupResolution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "elite")
	stranger := e.user(t, "stranger")

	setup, err := e.setupSvc.CreateSetup(u.ID, &service.SetupRequest{Name: "London Reversal"})
	require.NoError(t, err)

	req := eliteTrade(day, 80)
	req.SetupTypeID = &setup.ID
	tr, err := e.eliteSvc.CreateTrade(ctx, u.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "London Reversal", tr.SetupName)
	assert.Equal(t, models.SessionLondon, tr.Session)
	assert.Equal(t, models.ResultWin, tr.Result)
	assert.Equal(t, []string{"late entry"}, []string(tr.Mistakes))
	assert.Equal(t, models.StatusPartiallyClassified, tr.ClassificationStatus)

	foreign, err := e.setupSvc.CreateSetup(stranger.ID, &service.SetupRequest{Name: "Theirs"})
	require.NoError(t, err)
	req = eliteTrade(day, 80)
	req.SetupTypeID = &foreign.ID
	_, err = e.eliteSvc.CreateTrade(ctx, u.ID, req)
	assert.ErrorIs(t, err, repository.ErrSetupTypeNotFound)

	list, total, err := e.eliteSvc.SearchTrades(u.ID, &service.EliteTradeQuery{Setup: "London Reversal"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, tr.ID, list[0].ID)
}

func TestConvertLegacyTrade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "converter")

	legacy, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day, f64(115)))
	require.NoError(t, err)

	converted, err := e.eliteSvc.ConvertLegacyTrade(ctx, u.ID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", converted.Symbol)
	assert.Equal(t, "breakout", converted.SetupName)
	assert.Equal(t, models.ResultWin, converted.Result)
	assert.NotEqual(t, models.StatusLegacyUnclassified, converted.ClassificationStatus)

	_, err = e.tradeSvc.GetTrade(u.ID, legacy.ID)
	assert.ErrorIs(t, err, repository.ErrTradeNotFound)
	assert.Contains(t, e.events.types(), realtime.EventTradeConverted)

	tracker, err := e.risks.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.TradesTaken)
}

func TestSetupNamesAreUniquePerUser(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "a")
	b := e.user(t, "b")

	first, err := e.setupSvc.CreateSetup(a.ID, &service.SetupRequest{Name: "Breaker"})
	require.NoError(t, err)
	_, err = e.setupSvc.CreateSetup(a.ID, &service.SetupRequest{Name: "breaker "})
	assert.ErrorIs(t, err, service.ErrSetupNameTaken)
	_, err = e.setupSvc.CreateSetup(b.ID, &service.SetupRequest{Name: "Breaker"})
	assert.NoError(t, err)

	renamed, err := e.setupSvc.UpdateSetup(a.ID, first.ID, &service.SetupRequest{Name: "Breaker Block"})
	require.NoError(t, err)
	assert.Equal(t, "Breaker Block", renamed.Name)

	require.NoError(t, e.setupSvc.DeleteSetup(a.ID, first.ID))
	_, err = e.setupSvc.CreateSetup(a.ID, &service.SetupRequest{Name: "Breaker Block"})
	assert.NoError(t, err)
}

func TestAnalyticsCacheInvalidatedByJournalWrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "analyst")

	_, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day, f64(120)))
	require.NoError(t, err)

	edge, err := e.analytics.Edge(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, edge.TotalTrades)

	// written behind the service's back, so the cached result stays
	sneaky := &models.Trade{UserID: u.ID, Symbol: "GBPUSD", Direction: models.DirectionLong, Setup: "fade", Session: "asia",
		EntryPrice: 100, StopLoss: 90, ExitPrice: f64(80), EntryTime: day.Add(time.Hour)}
	require.NoError(t, sneaky.Recompute())
	require.NoError(t, e.trades.Create(sneaky))

	edge, err = e.analytics.Edge(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, edge.TotalTrades)

	_, err = e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day.Add(2*time.Hour), f64(110)))
	require.NoError(t, err)

	edge, err = e.analytics.Edge(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, edge.TotalTrades)

	filtered, err := e.analytics.Edge(ctx, u.ID, analytics.Filter{Symbols: []string{"gbpusd"}})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.TotalTrades)
	assert.Equal(t, 1, filtered.Losses)
}

func TestAnalyticsSkipsUnclassifiedTradesByDefault(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "gated")

	bare := legacyTrade(day, f64(80))
	bare.Setup, bare.Session = "", ""
	tr, err := e.tradeSvc.CreateTrade(ctx, u.ID, bare)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLegacyUnclassified, tr.ClassificationStatus)

	_, err = e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day.Add(time.Hour), f64(120)))
	require.NoError(t, err)

	edge, err := e.analytics.Edge(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, edge.TotalTrades)
	assert.Equal(t, 0, edge.Losses)

	equity, err := e.analytics.Equity(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Len(t, equity.Points, 1)

	all, err := e.analytics.Edge(ctx, u.ID, analytics.Filter{MinStatus: models.StatusLegacyUnclassified})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalTrades)
	assert.Equal(t, 1, all.Losses)
}

func TestAnalyticsDashboardCombinesSchemas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "both")

	_, err := e.tradeSvc.CreateTrade(ctx, u.ID, legacyTrade(day, f64(120)))
	require.NoError(t, err)
	_, err = e.eliteSvc.CreateTrade(ctx, u.ID, eliteTrade(day.Add(time.Hour), 120))
	require.NoError(t, err)

	dash, err := e.analytics.Dashboard(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Edge.TotalTrades)
	assert.Equal(t, 1, dash.Edge.Wins)
	assert.Equal(t, 1, dash.Edge.Losses)

	equity, err := e.analytics.Equity(ctx, u.ID, analytics.Filter{})
	require.NoError(t, err)
	require.Len(t, equity.Points, 2)
	assert.InDelta(t, 0, equity.Points[1].Cumulative, 1e-9)
}
