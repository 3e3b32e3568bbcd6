package ports

import (
	"context"

	"supplyguard/internal/domain/inventory"
)

type LowStockRow struct {
	Stock        inventory.StockLevel
	SupplierName *string
	LeadTimeDays *int
}

// InventoryReader exposes point queries over inventory facts. All reads are
// independent snapshots; callers may run them in parallel.
type InventoryReader interface {
	BOMForModel(ctx context.Context, model string) ([]inventory.BOMLine, error)
	// BOMLinesForPart returns one line per model whose bill of materials lists the part.
	BOMLinesForPart(ctx context.Context, partID string) ([]inventory.BOMLine, error)
	// StockLevel reports false when the part has no stock row.
	StockLevel(ctx context.Context, partID string) (inventory.StockLevel, bool, error)
	ListStockLevels(ctx context.Context) ([]inventory.StockLevel, error)
	// IncomingQuantity sums open material orders expected on or before untilDate (YYYY-MM-DD).
	IncomingQuantity(ctx context.Context, partID string, untilDate string) (int, error)
	// PendingInbound sums every open material order regardless of date.
	PendingInbound(ctx context.Context, partID string) (int, error)
	OpenSalesQuantity(ctx context.Context, model inventory.ModelRef) (int, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockRow, error)
}
