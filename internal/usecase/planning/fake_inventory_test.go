package planning

import (
	"context"
	"errors"
	"sort"
	"sync"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/ports"
)

type materialOrder struct {
	partID   string
	quantity int
	due      string
	status   string
}

type salesOrder struct {
	model    string
	quantity int
	status   string
}

// fakeInventory is an in-memory InventoryReader safe for concurrent reads.
type fakeInventory struct {
	mu       sync.Mutex
	bom      []inventory.BOMLine
	stock    map[string]inventory.StockLevel
	orders   []materialOrder
	sales    []salesOrder
	lowStock []ports.LowStockRow
	failWith error
	calls    int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{stock: make(map[string]inventory.StockLevel)}
}

func (f *fakeInventory) enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.failWith
}

func isClosed(status string) bool {
	return status == inventory.OrderStatusDelivered || status == inventory.OrderStatusCancelled
}

func (f *fakeInventory) BOMForModel(_ context.Context, model string) ([]inventory.BOMLine, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	var out []inventory.BOMLine
	for _, line := range f.bom {
		if line.Model == model {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *fakeInventory) BOMLinesForPart(_ context.Context, partID string) ([]inventory.BOMLine, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	var out []inventory.BOMLine
	for _, line := range f.bom {
		if line.PartID == partID {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

func (f *fakeInventory) StockLevel(_ context.Context, partID string) (inventory.StockLevel, bool, error) {
	if err := f.enter(); err != nil {
		return inventory.StockLevel{}, false, err
	}
	level, ok := f.stock[partID]
	return level, ok, nil
}

func (f *fakeInventory) ListStockLevels(context.Context) ([]inventory.StockLevel, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	out := make([]inventory.StockLevel, 0, len(f.stock))
	for _, level := range f.stock {
		out = append(out, level)
	}
	return out, nil
}

func (f *fakeInventory) IncomingQuantity(_ context.Context, partID string, untilDate string) (int, error) {
	if err := f.enter(); err != nil {
		return 0, err
	}
	total := 0
	for _, order := range f.orders {
		if order.partID == partID && !isClosed(order.status) && order.due <= untilDate {
			total += order.quantity
		}
	}
	return total, nil
}

func (f *fakeInventory) PendingInbound(_ context.Context, partID string) (int, error) {
	if err := f.enter(); err != nil {
		return 0, err
	}
	total := 0
	for _, order := range f.orders {
		if order.partID == partID && !isClosed(order.status) {
			total += order.quantity
		}
	}
	return total, nil
}

func (f *fakeInventory) OpenSalesQuantity(_ context.Context, ref inventory.ModelRef) (int, error) {
	if err := f.enter(); err != nil {
		return 0, err
	}
	total := 0
	for _, order := range f.sales {
		if order.model == ref.String() && !isClosed(order.status) {
			total += order.quantity
		}
	}
	return total, nil
}

func (f *fakeInventory) LowStock(_ context.Context, threshold int) ([]ports.LowStockRow, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	var out []ports.LowStockRow
	for _, row := range f.lowStock {
		if row.Stock.QuantityAvailable < threshold {
			out = append(out, row)
		}
	}
	return out, nil
}

var errStoreDown = errors.New("connection refused")
