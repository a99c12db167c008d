package store

import (
	"context"
	"fmt"

	"veriledger/internal/access"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

// The read methods rebuild engine state on open. Each returns the full
// persisted set; the engines' Restore methods index it in memory.

// LoadLedgerState reads every persisted ledger record.
func (s *Store) LoadLedgerState(ctx context.Context) (ledger.RestoreState, error) {
	var state ledger.RestoreState

	sensors, err := s.loadSensors(ctx)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}
	inventories, err := s.loadInventories(ctx)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}
	items, err := s.loadItems(ctx)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}
	verifications, err := s.loadVerifications(ctx)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}

	nextID, _, err := s.getMeta(ctx, metaNextInventoryID)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}
	validity, _, err := s.getMeta(ctx, metaValidityPeriod)
	if err != nil {
		return state, fmt.Errorf("load ledger state: %w", err)
	}

	state.Sensors = sensors
	state.Inventories = inventories
	state.Items = items
	state.Verifications = verifications
	state.NextInventoryID = nextID
	state.ValidityPeriod = validity
	return state, nil
}

func (s *Store) loadSensors(ctx context.Context) ([]ledger.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, type, authorized, last_active
		FROM sensors ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}
	defer rows.Close()

	var out []ledger.Sensor
	for rows.Next() {
		var (
			id, lastActive int64
			sensor         ledger.Sensor
		)
		if err := rows.Scan(&id, &sensor.Location, &sensor.Type, &sensor.Authorized, &lastActive); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		sensor.ID = uint64(id)
		sensor.LastActive = uint64(lastActive)
		out = append(out, sensor)
	}
	return out, rows.Err()
}

func (s *Store) loadInventories(ctx context.Context) ([]ledger.Inventory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, location, total_value, item_count, status, last_verified, sensor_ids, created_at
		FROM inventories ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query inventories: %w", err)
	}
	defer rows.Close()

	var out []ledger.Inventory
	for rows.Next() {
		var (
			id, totalValue, itemCount, lastVerified, createdAt int64
			owner, status, sensorIDs                           string
			inv                                                ledger.Inventory
		)
		if err := rows.Scan(&id, &owner, &inv.Location, &totalValue, &itemCount, &status, &lastVerified, &sensorIDs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		set, err := unmarshalIDSet(sensorIDs)
		if err != nil {
			return nil, fmt.Errorf("inventory %d sensor ids: %w", id, err)
		}
		inv.ID = uint64(id)
		inv.Owner = access.Principal(owner)
		inv.TotalValue = uint64(totalValue)
		inv.ItemCount = uint64(itemCount)
		inv.Status = ledger.VerificationStatus(status)
		inv.LastVerified = uint64(lastVerified)
		inv.SensorIDs = set
		inv.CreatedAt = uint64(createdAt)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) loadItems(ctx context.Context) ([]ledger.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, item_id, name, category, quantity, unit_value, sku, authenticity_hash, condition, verified_at
		FROM inventory_items ORDER BY inventory_id, item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []ledger.Item
	for rows.Next() {
		var (
			invID, itemID, quantity, unitValue, verifiedAt int64
			hash                                           string
			item                                           ledger.Item
		)
		if err := rows.Scan(&invID, &itemID, &item.Name, &item.Category, &quantity, &unitValue, &item.SKU, &hash, &item.Condition, &verifiedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		digest, err := ledger.ParseDigest(hash)
		if err != nil {
			return nil, fmt.Errorf("item (%d, %d) authenticity hash: %w", invID, itemID, err)
		}
		item.InventoryID = uint64(invID)
		item.ItemID = uint64(itemID)
		item.Quantity = uint64(quantity)
		item.UnitValue = uint64(unitValue)
		item.AuthenticityHash = digest
		item.VerifiedAt = uint64(verifiedAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) loadVerifications(ctx context.Context) ([]ledger.VerificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, verification_id, verifier, timestamp, total_value, item_count, verification_hash, sensor_data
		FROM verifications ORDER BY inventory_id, verification_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
	}
	defer rows.Close()

	var out []ledger.VerificationRecord
	for rows.Next() {
		var (
			invID, verID, timestamp, totalValue, itemCount int64
			verifier, hash                                 string
			rec                                            ledger.VerificationRecord
		)
		if err := rows.Scan(&invID, &verID, &verifier, &timestamp, &totalValue, &itemCount, &hash, &rec.SensorData); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		digest, err := ledger.ParseDigest(hash)
		if err != nil {
			return nil, fmt.Errorf("verification (%d, %d) hash: %w", invID, verID, err)
		}
		rec.InventoryID = uint64(invID)
		rec.VerificationID = uint64(verID)
		rec.Verifier = access.Principal(verifier)
		rec.Timestamp = uint64(timestamp)
		rec.TotalValue = uint64(totalValue)
		rec.ItemCount = uint64(itemCount)
		rec.VerificationHash = digest
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadVelocityState reads every persisted analytics record. Sales come back
// ordered by their global id so the rebuilt per-inventory logs stay in
// chronological order.
func (s *Store) LoadVelocityState(ctx context.Context) (velocity.RestoreState, error) {
	var state velocity.RestoreState

	sales, err := s.loadSales(ctx)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}
	categories, err := s.loadCategories(ctx)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}
	metrics, err := s.loadMetrics(ctx)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}

	nextID, _, err := s.getMeta(ctx, metaNextSalesID)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}
	window, _, err := s.getMeta(ctx, metaAnalysisWindow)
	if err != nil {
		return state, fmt.Errorf("load velocity state: %w", err)
	}

	state.Sales = sales
	state.Categories = categories
	state.Metrics = metrics
	state.History = history
	state.NextSalesID = nextID
	state.AnalysisWindow = window
	return state, nil
}

func (s *Store) loadSales(ctx context.Context) ([]velocity.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sales_id, inventory_id, seller, category, quantity, value, sale_date, channel, verified
		FROM sales ORDER BY sales_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []velocity.SaleRecord
	for rows.Next() {
		var (
			salesID, invID, quantity, value, saleDate int64
			seller                                    string
			sale                                      velocity.SaleRecord
		)
		if err := rows.Scan(&salesID, &invID, &seller, &sale.Category, &quantity, &value, &saleDate, &sale.Channel, &sale.Verified); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sale.SalesID = uint64(salesID)
		sale.InventoryID = uint64(invID)
		sale.Seller = access.Principal(seller)
		sale.Quantity = uint64(quantity)
		sale.Value = uint64(value)
		sale.SaleDate = uint64(saleDate)
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (s *Store) loadCategories(ctx context.Context) ([]velocity.CategoryPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, category, total_quantity, total_revenue, avg_sale_value, velocity_score, trend_direction, last_sale
		FROM category_performance ORDER BY inventory_id, category
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []velocity.CategoryPerformance
	for rows.Next() {
		var (
			invID, quantity, revenue, avg, score, lastSale int64
			trend                                          string
			cat                                            velocity.CategoryPerformance
		)
		if err := rows.Scan(&invID, &cat.Category, &quantity, &revenue, &avg, &score, &trend, &lastSale); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.InventoryID = uint64(invID)
		cat.TotalQuantity = uint64(quantity)
		cat.TotalRevenue = uint64(revenue)
		cat.AvgSaleValue = uint64(avg)
		cat.VelocityScore = uint64(score)
		cat.TrendDirection = velocity.Trend(trend)
		cat.LastSale = uint64(lastSale)
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (s *Store) loadMetrics(ctx context.Context) ([]velocity.InventoryMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, owner, total_sales, total_revenue, avg_daily_sales, turnover_rate, velocity_score, analysis_period, last_updated, sales_trend
		FROM inventory_metrics ORDER BY inventory_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []velocity.InventoryMetrics
	for rows.Next() {
		var (
			invID, sales, revenue, avgDaily, turnover, score, period, updated int64
			owner, trend                                                      string
			m                                                                 velocity.InventoryMetrics
		)
		if err := rows.Scan(&invID, &owner, &sales, &revenue, &avgDaily, &turnover, &score, &period, &updated, &trend); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		m.InventoryID = uint64(invID)
		m.Owner = access.Principal(owner)
		m.TotalSales = uint64(sales)
		m.TotalRevenue = uint64(revenue)
		m.AvgDailySales = uint64(avgDaily)
		m.TurnoverRate = uint64(turnover)
		m.VelocityScore = uint64(score)
		m.AnalysisPeriod = uint64(period)
		m.LastUpdated = uint64(updated)
		m.SalesTrend = velocity.Trend(trend)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) loadHistory(ctx context.Context) ([]velocity.VelocitySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inventory_id, analysis_epoch, velocity_score, turnover_rate, sales_volume, trend_change, risk_factor
		FROM velocity_history ORDER BY inventory_id, analysis_epoch
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []velocity.VelocitySnapshot
	for rows.Next() {
		var (
			invID, epoch, score, turnover, volume, risk int64
			snap                                        velocity.VelocitySnapshot
		)
		if err := rows.Scan(&invID, &epoch, &score, &turnover, &volume, &snap.TrendChange, &risk); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		snap.InventoryID = uint64(invID)
		snap.AnalysisEpoch = uint64(epoch)
		snap.VelocityScore = uint64(score)
		snap.TurnoverRate = uint64(turnover)
		snap.SalesVolume = uint64(volume)
		snap.RiskFactor = uint64(risk)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LoadReporterGrants reads every persisted reporter grant.
func (s *Store) LoadReporterGrants(ctx context.Context) ([]access.ReporterGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reporter, authorized, inventory_ids, last_report
		FROM reporters ORDER BY reporter
	`)
	if err != nil {
		return nil, fmt.Errorf("query reporters: %w", err)
	}
	defer rows.Close()

	var out []access.ReporterGrant
	for rows.Next() {
		var (
			reporter, inventoryIDs string
			lastReport             int64
			grant                  access.ReporterGrant
		)
		if err := rows.Scan(&reporter, &grant.Authorized, &inventoryIDs, &lastReport); err != nil {
			return nil, fmt.Errorf("scan reporter: %w", err)
		}
		set, err := unmarshalIDSet(inventoryIDs)
		if err != nil {
			return nil, fmt.Errorf("reporter %q inventory ids: %w", reporter, err)
		}
		grant.Reporter = access.Principal(reporter)
		grant.Inventories = set
		grant.LastReport = uint64(lastReport)
		out = append(out, grant)
	}
	return out, rows.Err()
}
