package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
)

const batchSize = 200

// Report counts upserted rows per file. Missing files are listed in Skipped.
type Report struct {
	Rows    map[string]int `json:"rows"`
	Skipped []string       `json:"skipped"`
}

type Loader struct {
	db *gorm.DB
}

func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

type tableSpec struct {
	file     string
	required []string
	load     func(tx *gorm.DB, rows []csvRow) (int, error)
}

var tables = []tableSpec{
	{file: "stock_levels.csv", required: []string{"part_id", "part_name", "location", "quantity_available", "status"}, load: loadStockLevels},
	{file: "bom_lines.csv", required: []string{"model", "part_id", "part_name", "quantity_needed"}, load: loadBOMLines},
	{file: "material_orders.csv", required: []string{"order_id", "part_id", "quantity_ordered", "order_date", "expected_delivery_date", "supplier_id", "status"}, load: loadMaterialOrders},
	{file: "sales_orders.csv", required: []string{"sales_order_id", "series", "variant", "quantity", "status", "requested_date"}, load: loadSalesOrders},
	{file: "supplier_terms.csv", required: []string{"supplier_id", "part_id", "supplier_name", "lead_time_days"}, load: loadSupplierTerms},
}

// LoadDir upserts every known CSV in dir inside one transaction.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Report, error) {
	if ctx == nil {
		return Report{}, errors.New("context is required")
	}
	if l.db == nil {
		return Report{}, errors.New("seed loader db is required")
	}
	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "infrastructure.seed"), slog.String("dir", dir))

	parsed := make(map[string][]csvRow, len(tables))
	report := Report{Rows: map[string]int{}, Skipped: []string{}}
	for _, spec := range tables {
		rows, err := readCSV(filepath.Join(dir, spec.file), spec.required)
		if errors.Is(err, os.ErrNotExist) {
			report.Skipped = append(report.Skipped, spec.file)
			continue
		}
		if err != nil {
			return Report{}, errs.Wrapf(err, "read %s", spec.file)
		}
		parsed[spec.file] = rows
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spec := range tables {
			rows, ok := parsed[spec.file]
			if !ok {
				continue
			}
			n, err := spec.load(tx, rows)
			if err != nil {
				return errs.Wrapf(err, "load %s", spec.file)
			}
			report.Rows[spec.file] = n
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	logging.Info(logCtx, "inventory seeded", slog.Any("rows", report.Rows), slog.Any("skipped", report.Skipped))
	return report, nil
}

type csvRow struct {
	line   int
	index  map[string]int
	record []string
}

func (r csvRow) str(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) optional(column string) *string {
	value := r.str(column)
	if value == "" {
		return nil
	}
	return &value
}

func (r csvRow) optionalInteger(column string) (*int, error) {
	if r.str(column) == "" {
		return nil, nil
	}
	n, err := r.integer(column)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r csvRow) optionalDecimal(column string) (decimal.NullDecimal, error) {
	value := r.str(column)
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("row %d: %s %q is not a number", r.line, column, value)
	}
	return decimal.NewNullDecimal(d), nil
}

// rating parses an optional 0..1 reliability score.
func (r csvRow) rating(column string) (*float64, error) {
	value := r.str(column)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		return nil, fmt.Errorf("row %d: %s %q must be between 0 and 1", r.line, column, value)
	}
	return &f, nil
}

func (r csvRow) integer(column string) (int, error) {
	value := r.str(column)
	n, err := strconv.Atoi(value)
	if err != nil {
		// Exported sheets often carry whole numbers as "12.0".
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("row %d: %s %q is not an integer", r.line, column, value)
		}
		n = int(f)
	}
	return n, nil
}

func readCSV(path string, required []string) ([]csvRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, column := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(column, "\ufeff")))] = i
	}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("header missing column %q", column)
		}
	}

	var rows []csvRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		rows = append(rows, csvRow{line: line, index: index, record: record})
	}
	return rows, nil
}

func upsert[T any](tx *gorm.DB, items []T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(items, batchSize).Error; err != nil {
		return 0, err
	}
	return len(items), nil
}

func loadStockLevels(tx *gorm.DB, rows []csvRow) (int, error) {
	items := make([]model.StockLevel, 0, len(rows))
	for _, row := range rows {
		qty, err := row.integer("quantity_available")
		if err != nil {
			return 0, err
		}
		items = append(items, model.StockLevel{
			PartID:            row.str("part_id"),
			PartName:          row.str("part_name"),
			Location:          row.str("location"),
			QuantityAvailable: qty,
			Status:            row.str("status"),
			QualityHoldReason: row.optional("quality_hold_reason"),
		})
	}
	return upsert(tx, items)
}

func loadBOMLines(tx *gorm.DB, rows []csvRow) (int, error) {
	items := make([]model.BOMLine, 0, len(rows))
	for _, row := range rows {
		qty, err := row.integer("quantity_needed")
		if err != nil {
			return 0, err
		}
		if qty <= 0 {
			return 0, fmt.Errorf("row %d: quantity_needed must be positive", row.line)
		}
		items = append(items, model.BOMLine{
			Model:          row.str("model"),
			PartID:         row.str("part_id"),
			PartName:       row.str("part_name"),
			QuantityNeeded: qty,
		})
	}
	return upsert(tx, items)
}

func loadMaterialOrders(tx *gorm.DB, rows []csvRow) (int, error) {
	items := make([]model.MaterialOrder, 0, len(rows))
	for _, row := range rows {
		qty, err := row.integer("quantity_ordered")
		if err != nil {
			return 0, err
		}
		items = append(items, model.MaterialOrder{
			OrderID:              row.str("order_id"),
			PartID:               row.str("part_id"),
			QuantityOrdered:      qty,
			OrderDate:            row.str("order_date"),
			ExpectedDeliveryDate: row.str("expected_delivery_date"),
			SupplierID:           row.str("supplier_id"),
			Status:               strings.ToLower(row.str("status")),
			ActualDeliveredAt:    row.optional("actual_delivered_at"),
		})
	}
	return upsert(tx, items)
}

func loadSalesOrders(tx *gorm.DB, rows []csvRow) (int, error) {
	items := make([]model.SalesOrder, 0, len(rows))
	for _, row := range rows {
		qty, err := row.integer("quantity")
		if err != nil {
			return 0, err
		}
		items = append(items, model.SalesOrder{
			SalesOrderID:  row.str("sales_order_id"),
			Series:        row.str("series"),
			Variant:       row.str("variant"),
			Quantity:      qty,
			Status:        strings.ToLower(row.str("status")),
			RequestedDate: row.str("requested_date"),
		})
	}
	return upsert(tx, items)
}

func loadSupplierTerms(tx *gorm.DB, rows []csvRow) (int, error) {
	items := make([]model.SupplierTerm, 0, len(rows))
	for _, row := range rows {
		days, err := row.integer("lead_time_days")
		if err != nil {
			return 0, err
		}
		price, err := row.optionalDecimal("price_per_unit")
		if err != nil {
			return 0, err
		}
		minQty, err := row.optionalInteger("min_order_qty")
		if err != nil {
			return 0, err
		}
		reliability, err := row.rating("reliability_rating")
		if err != nil {
			return 0, err
		}
		items = append(items, model.SupplierTerm{
			SupplierID:        row.str("supplier_id"),
			PartID:            row.str("part_id"),
			SupplierName:      row.str("supplier_name"),
			LeadTimeDays:      days,
			PricePerUnit:      price,
			MinOrderQty:       minQty,
			ReliabilityRating: reliability,
		})
	}
	return upsert(tx, items)
}
