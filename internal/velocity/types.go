package velocity

import "veriledger/internal/access"

// Trend is the direction of a sales trend.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Risk classifications returned by assessments.
const (
	RiskHigh   = "high-risk"
	RiskMedium = "medium-risk"
	RiskLow    = "low-risk"
	RiskNoData = "no-data"
)

// Analysis window defaults and bounds (epoch spans).
const (
	DefaultAnalysisWindow = 3000
	MinAnalysisWindow     = 100
	MaxAnalysisWindow     = 100000

	// DefaultBlocksPerDay is the fixed epoch-to-day conversion constant.
	DefaultBlocksPerDay = 100
)

// SaleRecord is one append-only point-of-sale event. SalesID comes from a
// global counter shared across all inventories.
type SaleRecord struct {
	SalesID     uint64           `json:"sales_id"`
	InventoryID uint64           `json:"inventory_id"`
	Seller      access.Principal `json:"seller"`
	Category    string           `json:"category"`
	Quantity    uint64           `json:"quantity"`
	Value       uint64           `json:"value"`
	SaleDate    uint64           `json:"sale_date"`
	Channel     string           `json:"channel"`
	Verified    bool             `json:"verified"`
}

// CategoryPerformance is the running aggregate for one (inventory, category)
// pair, recomputed incrementally on every sale.
type CategoryPerformance struct {
	InventoryID    uint64 `json:"inventory_id"`
	Category       string `json:"category"`
	TotalQuantity  uint64 `json:"total_quantity"`
	TotalRevenue   uint64 `json:"total_revenue"`
	AvgSaleValue   uint64 `json:"avg_sale_value"`
	VelocityScore  uint64 `json:"velocity_score"`
	TrendDirection Trend  `json:"trend_direction"`
	LastSale       uint64 `json:"last_sale"`
}

// InventoryMetrics is the latest analysis snapshot for one inventory,
// overwritten by each analysis run.
type InventoryMetrics struct {
	InventoryID    uint64           `json:"inventory_id"`
	Owner          access.Principal `json:"owner"`
	TotalSales     uint64           `json:"total_sales"`
	TotalRevenue   uint64           `json:"total_revenue"`
	AvgDailySales  uint64           `json:"avg_daily_sales"`
	TurnoverRate   uint64           `json:"turnover_rate"`
	VelocityScore  uint64           `json:"velocity_score"`
	AnalysisPeriod uint64           `json:"analysis_period"`
	LastUpdated    uint64           `json:"last_updated"`
	SalesTrend     Trend            `json:"sales_trend"`
}

// VelocitySnapshot is one immutable entry of the analytics time series,
// keyed by (inventory_id, analysis_epoch).
type VelocitySnapshot struct {
	InventoryID   uint64 `json:"inventory_id"`
	AnalysisEpoch uint64 `json:"analysis_epoch"`
	VelocityScore uint64 `json:"velocity_score"`
	TurnoverRate  uint64 `json:"turnover_rate"`
	SalesVolume   uint64 `json:"sales_volume"`
	TrendChange   int    `json:"trend_change"`
	RiskFactor    uint64 `json:"risk_factor"`
}

// RiskAssessment classifies the most recent velocity snapshot for financing
// decisions. When no snapshot exists for the current epoch the assessment is
// the fail-safe sentinel: classification "no-data" with the worst-case risk.
type RiskAssessment struct {
	InventoryID    uint64 `json:"inventory_id"`
	Classification string `json:"classification"`
	VelocityScore  uint64 `json:"velocity_score"`
	TurnoverRate   uint64 `json:"turnover_rate"`
	RiskFactor     uint64 `json:"risk_factor"`
	AnalysisEpoch  uint64 `json:"analysis_epoch"`
}
