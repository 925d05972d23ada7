package app

import (
	"time"

	"profitscope/internal/engine"
)

// ReportRequest carries the parameters shared by every report operation.
type ReportRequest struct {
	OrganizationID string
	From           time.Time
	To             time.Time
}

// OverviewRequest is the input for GetOverview. Compare additionally loads
// the preceding window of equal length and fills the change fields.
type OverviewRequest struct {
	ReportRequest
	Compare bool
}

// OrdersRequest is the input for GetOrdersAnalytics.
type OrdersRequest struct {
	ReportRequest
	Compare bool
	Options engine.OrdersOptions
}

// PnLRequest is the input for GetPnL.
type PnLRequest struct {
	ReportRequest
	Granularity engine.Granularity
}
