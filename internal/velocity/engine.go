// Package velocity implements the sales velocity analytics engine: the
// append-only sales log, per-category running aggregates, per-inventory
// metric snapshots, and the velocity time series feeding risk assessments.
//
// The engine is an independent peer of the verification ledger; the two
// share only inventory identifiers and the epoch clock. Tracked ownership
// is established by the caller of InitializeTracking, never read from the
// ledger.
package velocity

import (
	"context"
	"fmt"
	"sync"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/errs"
)

type categoryKey struct {
	inventoryID uint64
	category    string
}

type historyKey struct {
	inventoryID   uint64
	analysisEpoch uint64
}

// Journal persists analytics mutations. RecordSale and RecordAnalysis must
// commit their history row and snapshot row atomically. A nil journal means
// the engine runs ephemeral.
type Journal interface {
	RecordSale(ctx context.Context, sale SaleRecord, cat CategoryPerformance, nextSalesID uint64) error
	RecordAnalysis(ctx context.Context, snap VelocitySnapshot, metrics InventoryMetrics) error
	RecordMetrics(ctx context.Context, metrics InventoryMetrics) error
	RecordAnalysisWindow(ctx context.Context, window uint64) error
}

// Engine owns the analytics side of the record stores.
//
// One mutex serializes every mutation, preserving the single-writer
// contract: a sale's log append and its category aggregate update (and
// likewise an analysis run's snapshot append and metrics overwrite) are
// never independently observable.
type Engine struct {
	mu      sync.Mutex
	clock   *epoch.Clock
	acl     *access.Controller
	journal Journal

	analysisWindow uint64
	minWindow      uint64
	maxWindow      uint64
	blocksPerDay   uint64

	nextSalesID uint64

	sales      map[uint64]*SaleRecord
	salesByInv map[uint64][]*SaleRecord
	categories map[categoryKey]*CategoryPerformance
	metrics    map[uint64]*InventoryMetrics
	history    map[historyKey]*VelocitySnapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithAnalysisWindow sets the initial analysis window.
func WithAnalysisWindow(window uint64) Option {
	return func(e *Engine) {
		if window > 0 {
			e.analysisWindow = window
		}
	}
}

// WithWindowBounds overrides the tunable window bounds.
func WithWindowBounds(min, max uint64) Option {
	return func(e *Engine) {
		if min > 0 && max >= min {
			e.minWindow, e.maxWindow = min, max
		}
	}
}

// WithBlocksPerDay overrides the epoch-to-day conversion constant.
func WithBlocksPerDay(blocks uint64) Option {
	return func(e *Engine) {
		if blocks > 0 {
			e.blocksPerDay = blocks
		}
	}
}

// New creates an Engine. journal may be nil for ephemeral operation.
func New(clock *epoch.Clock, acl *access.Controller, journal Journal, opts ...Option) *Engine {
	e := &Engine{
		clock:          clock,
		acl:            acl,
		journal:        journal,
		analysisWindow: DefaultAnalysisWindow,
		minWindow:      MinAnalysisWindow,
		maxWindow:      MaxAnalysisWindow,
		blocksPerDay:   DefaultBlocksPerDay,
		nextSalesID:    1,
		sales:          make(map[uint64]*SaleRecord),
		salesByInv:     make(map[uint64][]*SaleRecord),
		categories:     make(map[categoryKey]*CategoryPerformance),
		metrics:        make(map[uint64]*InventoryMetrics),
		history:        make(map[historyKey]*VelocitySnapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitializeTracking seeds a zeroed metrics snapshot for an inventory.
// The caller becomes the tracked owner used for analytics-side access
// checks. Fails with AlreadyExists if the inventory is already tracked.
func (e *Engine) InitializeTracking(ctx context.Context, caller access.Principal, inventoryID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.metrics[inventoryID]; ok {
		return errs.AlreadyExists(fmt.Sprintf("inventory %d is already tracked", inventoryID))
	}

	m := &InventoryMetrics{
		InventoryID: inventoryID,
		Owner:       caller,
		SalesTrend:  TrendStable,
	}

	if e.journal != nil {
		if err := e.journal.RecordMetrics(ctx, *m); err != nil {
			return fmt.Errorf("journal tracking init: %w", err)
		}
	}

	e.metrics[inventoryID] = m
	return nil
}

// RecordSale appends a sale and incrementally updates the category
// aggregate for (inventory, category). Requires a mutation grant on the
// tracked inventory. Returns the freshly assigned global sales id.
func (e *Engine) RecordSale(ctx context.Context, caller access.Principal, inventoryID uint64, category string, quantity, value uint64, channel string) (uint64, error) {
	if quantity == 0 {
		return 0, errs.InvalidData("sale quantity must be positive")
	}
	if value == 0 {
		return 0, errs.InvalidData("sale value must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.metrics[inventoryID]
	if !ok {
		return 0, errs.NotFound(fmt.Sprintf("inventory %d is not tracked", inventoryID))
	}
	if err := e.acl.Authorize(caller, inventoryID, m.Owner); err != nil {
		return 0, err
	}

	now := e.clock.Current()
	salesID := e.nextSalesID
	sale := &SaleRecord{
		SalesID:     salesID,
		InventoryID: inventoryID,
		Seller:      caller,
		Category:    category,
		Quantity:    quantity,
		Value:       value,
		SaleDate:    now,
		Channel:     channel,
		Verified:    true,
	}

	key := categoryKey{inventoryID, category}
	cat := CategoryPerformance{InventoryID: inventoryID, Category: category}
	if prev, ok := e.categories[key]; ok {
		cat = *prev
	}
	cat.TotalQuantity += quantity
	cat.TotalRevenue += value
	cat.AvgSaleValue = cat.TotalRevenue / cat.TotalQuantity
	cat.VelocityScore = e.scoreLocked(e.categoryVolumeLocked(inventoryID, category, now) + quantity)
	// Category trend is only ever marked up; bidirectional trend lives in
	// the per-inventory velocity history.
	cat.TrendDirection = TrendUp
	cat.LastSale = now

	if e.journal != nil {
		if err := e.journal.RecordSale(ctx, *sale, cat, salesID+1); err != nil {
			return 0, fmt.Errorf("journal sale: %w", err)
		}
	}

	e.sales[salesID] = sale
	e.salesByInv[inventoryID] = append(e.salesByInv[inventoryID], sale)
	stored := cat
	e.categories[key] = &stored
	e.nextSalesID = salesID + 1
	return salesID, nil
}

// AnalyzeVelocity aggregates the sales window into a fresh velocity
// snapshot and overwrites the inventory's metrics. Owner or administrator
// only. The snapshot append and metrics overwrite commit atomically.
func (e *Engine) AnalyzeVelocity(ctx context.Context, caller access.Principal, inventoryID uint64) (VelocitySnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.metrics[inventoryID]
	if !ok {
		return VelocitySnapshot{}, errs.NotFound(fmt.Sprintf("inventory %d is not tracked", inventoryID))
	}
	if caller != m.Owner && !e.acl.IsAdmin(caller) {
		return VelocitySnapshot{}, errs.Unauthorized(fmt.Sprintf("only the owner or administrator analyzes inventory %d", inventoryID))
	}

	now := e.clock.Current()
	key := historyKey{inventoryID, now}
	if _, ok := e.history[key]; ok {
		return VelocitySnapshot{}, errs.AlreadyExists(fmt.Sprintf("inventory %d was already analyzed at epoch %d", inventoryID, now))
	}

	window := e.analysisWindow
	volume, revenue := e.windowAggregatesLocked(inventoryID, now, window)

	velocity := e.scoreLocked(volume)
	turnover := e.turnoverLocked(volume)
	avgDaily := uint64(0)
	if days := window / e.blocksPerDay; days > 0 {
		avgDaily = volume / days
	}

	trendChange := 0
	if window <= now {
		if prev, ok := e.history[historyKey{inventoryID, now - window}]; ok {
			switch {
			case velocity > prev.VelocityScore:
				trendChange = 1
			case velocity < prev.VelocityScore:
				trendChange = -1
			}
		}
	}

	snap := &VelocitySnapshot{
		InventoryID:   inventoryID,
		AnalysisEpoch: now,
		VelocityScore: velocity,
		TurnoverRate:  turnover,
		SalesVolume:   volume,
		TrendChange:   trendChange,
		RiskFactor:    riskFactor(velocity, turnover),
	}

	updated := *m
	updated.TotalSales = volume
	updated.TotalRevenue = revenue
	updated.AvgDailySales = avgDaily
	updated.TurnoverRate = turnover
	updated.VelocityScore = velocity
	updated.AnalysisPeriod = window
	updated.LastUpdated = now
	updated.SalesTrend = trendOf(trendChange)

	if e.journal != nil {
		if err := e.journal.RecordAnalysis(ctx, *snap, updated); err != nil {
			return VelocitySnapshot{}, fmt.Errorf("journal analysis: %w", err)
		}
	}

	e.history[key] = snap
	*m = updated
	return *snap, nil
}

// RiskAssessment classifies the velocity snapshot written at the current
// epoch. With no snapshot for the current epoch it returns the fail-safe
// no-data assessment: unknown collateral is treated as worst-case risk.
func (e *Engine) RiskAssessment(inventoryID uint64) RiskAssessment {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Current()
	snap, ok := e.history[historyKey{inventoryID, now}]
	if !ok {
		return RiskAssessment{
			InventoryID:    inventoryID,
			Classification: RiskNoData,
			RiskFactor:     100,
			AnalysisEpoch:  now,
		}
	}

	return RiskAssessment{
		InventoryID:    inventoryID,
		Classification: classify(snap.RiskFactor),
		VelocityScore:  snap.VelocityScore,
		TurnoverRate:   snap.TurnoverRate,
		RiskFactor:     snap.RiskFactor,
		AnalysisEpoch:  snap.AnalysisEpoch,
	}
}

// SetAnalysisWindow tunes the analysis window. Administrator-only; the
// window must stay within the configured bounds.
func (e *Engine) SetAnalysisWindow(ctx context.Context, caller access.Principal, window uint64) error {
	if !e.acl.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator tunes the analysis window")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if window < e.minWindow || window > e.maxWindow {
		return errs.InvalidPeriod(fmt.Sprintf("analysis window %d outside bounds [%d, %d]", window, e.minWindow, e.maxWindow)).
			WithDetail("min", fmt.Sprintf("%d", e.minWindow)).
			WithDetail("max", fmt.Sprintf("%d", e.maxWindow))
	}

	if e.journal != nil {
		if err := e.journal.RecordAnalysisWindow(ctx, window); err != nil {
			return fmt.Errorf("journal analysis window: %w", err)
		}
	}

	e.analysisWindow = window
	return nil
}

// windowAggregatesLocked sums quantity and value of an inventory's sales
// inside [now-window, now].
func (e *Engine) windowAggregatesLocked(inventoryID, now, window uint64) (volume, revenue uint64) {
	start := uint64(0)
	if window < now {
		start = now - window
	}
	for _, sale := range e.salesByInv[inventoryID] {
		if sale.SaleDate >= start && sale.SaleDate <= now {
			volume += sale.Quantity
			revenue += sale.Value
		}
	}
	return volume, revenue
}

// categoryVolumeLocked sums the window quantity of one category, excluding
// a sale being recorded right now (the caller adds it on top).
func (e *Engine) categoryVolumeLocked(inventoryID uint64, category string, now uint64) uint64 {
	start := uint64(0)
	if e.analysisWindow < now {
		start = now - e.analysisWindow
	}
	var volume uint64
	for _, sale := range e.salesByInv[inventoryID] {
		if sale.Category == category && sale.SaleDate >= start && sale.SaleDate <= now {
			volume += sale.Quantity
		}
	}
	return volume
}

// scoreLocked converts window volume to the normalized sales-per-day
// velocity score (scaled by 100). A zero-day window scores 0.
func (e *Engine) scoreLocked(volume uint64) uint64 {
	days := e.analysisWindow / e.blocksPerDay
	if days == 0 {
		return 0
	}
	return volume * 100 / days
}

// turnoverLocked annualizes window volume into the turnover rate.
func (e *Engine) turnoverLocked(volume uint64) uint64 {
	days := e.analysisWindow / e.blocksPerDay
	if days == 0 {
		return 0
	}
	return volume * 365 / (days * 100)
}

// riskFactor averages the velocity and turnover threshold scores.
func riskFactor(velocity, turnover uint64) uint64 {
	var velocityRisk uint64
	switch {
	case velocity < 50:
		velocityRisk = 80
	case velocity < 100:
		velocityRisk = 40
	default:
		velocityRisk = 10
	}

	var turnoverRisk uint64
	switch {
	case turnover < 2:
		turnoverRisk = 70
	case turnover < 4:
		turnoverRisk = 30
	default:
		turnoverRisk = 5
	}

	return (velocityRisk + turnoverRisk) / 2
}

// classify maps a risk factor to its classification band.
func classify(risk uint64) string {
	switch {
	case risk > 60:
		return RiskHigh
	case risk > 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

func trendOf(change int) Trend {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	default:
		return TrendStable
	}
}

// Sale returns a copy of a sale record by its global id.
func (e *Engine) Sale(salesID uint64) (SaleRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sale, ok := e.sales[salesID]
	if !ok {
		return SaleRecord{}, false
	}
	return *sale, true
}

// CategoryPerformance returns a copy of a category aggregate.
func (e *Engine) CategoryPerformance(inventoryID uint64, category string) (CategoryPerformance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cat, ok := e.categories[categoryKey{inventoryID, category}]
	if !ok {
		return CategoryPerformance{}, false
	}
	return *cat, true
}

// Metrics returns a copy of an inventory's metrics snapshot.
func (e *Engine) Metrics(inventoryID uint64) (InventoryMetrics, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.metrics[inventoryID]
	if !ok {
		return InventoryMetrics{}, false
	}
	return *m, true
}

// HistoryAt returns a copy of the velocity snapshot at an analysis epoch.
func (e *Engine) HistoryAt(inventoryID, analysisEpoch uint64) (VelocitySnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.history[historyKey{inventoryID, analysisEpoch}]
	if !ok {
		return VelocitySnapshot{}, false
	}
	return *snap, true
}

// AnalysisWindow returns the current analysis window.
func (e *Engine) AnalysisWindow() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analysisWindow
}

// RestoreState carries persisted analytics state for rebuild-on-open.
type RestoreState struct {
	Sales          []SaleRecord
	Categories     []CategoryPerformance
	Metrics        []InventoryMetrics
	History        []VelocitySnapshot
	NextSalesID    uint64
	AnalysisWindow uint64
}

// Restore installs persisted state without journaling. The sales counter
// only moves forward; a restore can never cause an id to be reused.
func (e *Engine) Restore(state RestoreState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range state.Sales {
		sale := s
		e.sales[s.SalesID] = &sale
		e.salesByInv[s.InventoryID] = append(e.salesByInv[s.InventoryID], &sale)
	}
	for _, c := range state.Categories {
		cat := c
		e.categories[categoryKey{c.InventoryID, c.Category}] = &cat
	}
	for _, m := range state.Metrics {
		metrics := m
		e.metrics[m.InventoryID] = &metrics
	}
	for _, h := range state.History {
		snap := h
		e.history[historyKey{h.InventoryID, h.AnalysisEpoch}] = &snap
	}
	if state.NextSalesID > e.nextSalesID {
		e.nextSalesID = state.NextSalesID
	}
	if state.AnalysisWindow > 0 {
		e.analysisWindow = state.AnalysisWindow
	}
}
