package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"veriledger/internal/access"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

// The write methods implement the engines' Journal interfaces. Latest-value
// rows use ON CONFLICT DO UPDATE; append-only history rows are plain inserts
// tagged with a fresh audit id. Operations that touch a history table and a
// snapshot table commit both rows in one transaction.

// RecordSensor upserts a sensor record.
func (s *Store) RecordSensor(ctx context.Context, sensor ledger.Sensor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensors (id, location, type, authorized, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			location = excluded.location,
			type = excluded.type,
			authorized = excluded.authorized,
			last_active = excluded.last_active
	`,
		int64(sensor.ID),
		sensor.Location,
		sensor.Type,
		sensor.Authorized,
		int64(sensor.LastActive),
	)
	if err != nil {
		return fmt.Errorf("write sensor: %w", err)
	}
	return nil
}

// RecordInventory upserts an inventory snapshot.
func (s *Store) RecordInventory(ctx context.Context, inv ledger.Inventory) error {
	if err := s.writeInventory(ctx, s.db, inv); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	return nil
}

func (s *Store) writeInventory(ctx context.Context, e execer, inv ledger.Inventory) error {
	sensorIDs, err := marshalIDSet(inv.SensorIDs)
	if err != nil {
		return err
	}

	_, err = e.ExecContext(ctx, `
		INSERT INTO inventories
		(id, owner, location, total_value, item_count, status, last_verified, sensor_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			location = excluded.location,
			total_value = excluded.total_value,
			item_count = excluded.item_count,
			status = excluded.status,
			last_verified = excluded.last_verified,
			sensor_ids = excluded.sensor_ids,
			created_at = excluded.created_at
	`,
		int64(inv.ID),
		string(inv.Owner),
		inv.Location,
		int64(inv.TotalValue),
		int64(inv.ItemCount),
		string(inv.Status),
		int64(inv.LastVerified),
		sensorIDs,
		int64(inv.CreatedAt),
	)
	return err
}

// RecordItem upserts an inventory item.
func (s *Store) RecordItem(ctx context.Context, item ledger.Item) error {
	if err := s.writeItem(ctx, s.db, item); err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

func (s *Store) writeItem(ctx context.Context, e execer, item ledger.Item) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO inventory_items
		(inventory_id, item_id, name, category, quantity, unit_value, sku, authenticity_hash, condition, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(inventory_id, item_id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			quantity = excluded.quantity,
			unit_value = excluded.unit_value,
			sku = excluded.sku,
			authenticity_hash = excluded.authenticity_hash,
			condition = excluded.condition,
			verified_at = excluded.verified_at
	`,
		int64(item.InventoryID),
		int64(item.ItemID),
		item.Name,
		item.Category,
		int64(item.Quantity),
		int64(item.UnitValue),
		item.SKU,
		item.AuthenticityHash.String(),
		item.Condition,
		int64(item.VerifiedAt),
	)
	return err
}

// RecordItemAdded atomically writes a fresh item together with the parent
// inventory's incremented item count.
func (s *Store) RecordItemAdded(ctx context.Context, item ledger.Item, inv ledger.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("item added: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.writeItem(ctx, tx, item); err != nil {
		return fmt.Errorf("item added: write item: %w", err)
	}
	if err := s.writeInventory(ctx, tx, inv); err != nil {
		return fmt.Errorf("item added: write inventory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("item added: commit: %w", err)
	}
	return nil
}

// RecordVerification atomically appends a verification history row and
// overwrites the inventory snapshot it attests. The history insert has no
// conflict clause: a duplicate (inventory_id, verification_id) is a caller
// bug and must surface as an error, never a silent overwrite.
func (s *Store) RecordVerification(ctx context.Context, rec ledger.VerificationRecord, inv ledger.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("verification: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO verifications
		(audit_id, inventory_id, verification_id, verifier, timestamp, total_value, item_count, verification_hash, sensor_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		int64(rec.InventoryID),
		int64(rec.VerificationID),
		string(rec.Verifier),
		int64(rec.Timestamp),
		int64(rec.TotalValue),
		int64(rec.ItemCount),
		rec.VerificationHash.String(),
		rec.SensorData,
	)
	if err != nil {
		return fmt.Errorf("verification: insert history: %w", err)
	}

	if err := s.writeInventory(ctx, tx, inv); err != nil {
		return fmt.Errorf("verification: write inventory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("verification: commit: %w", err)
	}
	return nil
}

// RecordValidityPeriod persists the tuned verification validity window.
func (s *Store) RecordValidityPeriod(ctx context.Context, period uint64) error {
	return s.setMeta(ctx, s.db, metaValidityPeriod, period)
}

// RecordNextInventoryID persists the inventory id counter.
func (s *Store) RecordNextInventoryID(ctx context.Context, next uint64) error {
	return s.setMeta(ctx, s.db, metaNextInventoryID, next)
}

// RecordReporterGrant upserts a reporter grant record.
func (s *Store) RecordReporterGrant(ctx context.Context, grant access.ReporterGrant) error {
	inventoryIDs, err := marshalIDSet(grant.Inventories)
	if err != nil {
		return fmt.Errorf("write reporter grant: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reporters (reporter, authorized, inventory_ids, last_report)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(reporter) DO UPDATE SET
			authorized = excluded.authorized,
			inventory_ids = excluded.inventory_ids,
			last_report = excluded.last_report
	`,
		string(grant.Reporter),
		grant.Authorized,
		inventoryIDs,
		int64(grant.LastReport),
	)
	if err != nil {
		return fmt.Errorf("write reporter grant: %w", err)
	}
	return nil
}

// RecordSale atomically appends a sale to the log, overwrites the category
// aggregate, and advances the persisted sales counter.
func (s *Store) RecordSale(ctx context.Context, sale velocity.SaleRecord, cat velocity.CategoryPerformance, nextSalesID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sale: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales
		(audit_id, sales_id, inventory_id, seller, category, quantity, value, sale_date, channel, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		int64(sale.SalesID),
		int64(sale.InventoryID),
		string(sale.Seller),
		sale.Category,
		int64(sale.Quantity),
		int64(sale.Value),
		int64(sale.SaleDate),
		sale.Channel,
		sale.Verified,
	)
	if err != nil {
		return fmt.Errorf("sale: insert log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_performance
		(inventory_id, category, total_quantity, total_revenue, avg_sale_value, velocity_score, trend_direction, last_sale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(inventory_id, category) DO UPDATE SET
			total_quantity = excluded.total_quantity,
			total_revenue = excluded.total_revenue,
			avg_sale_value = excluded.avg_sale_value,
			velocity_score = excluded.velocity_score,
			trend_direction = excluded.trend_direction,
			last_sale = excluded.last_sale
	`,
		int64(cat.InventoryID),
		cat.Category,
		int64(cat.TotalQuantity),
		int64(cat.TotalRevenue),
		int64(cat.AvgSaleValue),
		int64(cat.VelocityScore),
		string(cat.TrendDirection),
		int64(cat.LastSale),
	)
	if err != nil {
		return fmt.Errorf("sale: write category: %w", err)
	}

	if err := s.setMeta(ctx, tx, metaNextSalesID, nextSalesID); err != nil {
		return fmt.Errorf("sale: advance counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sale: commit: %w", err)
	}
	return nil
}

// RecordAnalysis atomically appends a velocity snapshot to the time series
// and overwrites the inventory's metrics.
func (s *Store) RecordAnalysis(ctx context.Context, snap velocity.VelocitySnapshot, metrics velocity.InventoryMetrics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("analysis: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO velocity_history
		(audit_id, inventory_id, analysis_epoch, velocity_score, turnover_rate, sales_volume, trend_change, risk_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		int64(snap.InventoryID),
		int64(snap.AnalysisEpoch),
		int64(snap.VelocityScore),
		int64(snap.TurnoverRate),
		int64(snap.SalesVolume),
		snap.TrendChange,
		int64(snap.RiskFactor),
	)
	if err != nil {
		return fmt.Errorf("analysis: insert history: %w", err)
	}

	if err := s.writeMetrics(ctx, tx, metrics); err != nil {
		return fmt.Errorf("analysis: write metrics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("analysis: commit: %w", err)
	}
	return nil
}

// RecordMetrics upserts an inventory metrics snapshot.
func (s *Store) RecordMetrics(ctx context.Context, metrics velocity.InventoryMetrics) error {
	if err := s.writeMetrics(ctx, s.db, metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (s *Store) writeMetrics(ctx context.Context, e execer, m velocity.InventoryMetrics) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO inventory_metrics
		(inventory_id, owner, total_sales, total_revenue, avg_daily_sales, turnover_rate, velocity_score, analysis_period, last_updated, sales_trend)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(inventory_id) DO UPDATE SET
			owner = excluded.owner,
			total_sales = excluded.total_sales,
			total_revenue = excluded.total_revenue,
			avg_daily_sales = excluded.avg_daily_sales,
			turnover_rate = excluded.turnover_rate,
			velocity_score = excluded.velocity_score,
			analysis_period = excluded.analysis_period,
			last_updated = excluded.last_updated,
			sales_trend = excluded.sales_trend
	`,
		int64(m.InventoryID),
		string(m.Owner),
		int64(m.TotalSales),
		int64(m.TotalRevenue),
		int64(m.AvgDailySales),
		int64(m.TurnoverRate),
		int64(m.VelocityScore),
		int64(m.AnalysisPeriod),
		int64(m.LastUpdated),
		string(m.SalesTrend),
	)
	return err
}

// RecordAnalysisWindow persists the tuned analysis window.
func (s *Store) RecordAnalysisWindow(ctx context.Context, window uint64) error {
	return s.setMeta(ctx, s.db, metaAnalysisWindow, window)
}
