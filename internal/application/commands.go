package application

import "time"

// AllocateCommand represents the command to promise an order line
type AllocateCommand struct {
	OrderID  string
	SKU      string
	Qty      int
	Priority string
	DueDate  *time.Time
}

// ReleaseLockCommand represents the command to repay or cancel a lock
type ReleaseLockCommand struct {
	LockID string
}

// GetAllocationsQuery represents the query for an order's audit records
type GetAllocationsQuery struct {
	OrderID string
}

// ListAllocationsQuery represents the paged query over the audit trail
type ListAllocationsQuery struct {
	SKU    string
	Limit  int64
	Offset int64
}

// GetPositionQuery represents the query for a SKU's position snapshot
type GetPositionQuery struct {
	SKU string
}
