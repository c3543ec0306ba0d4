package materials

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	materialsSheet = "Materials"
	suppliersSheet = "Suppliers"
)

var materialHeader = []any{"ID", "Packet No", "Part Name", "Length", "Width", "Height", "Quantity", "Supplier", "Updated By", "Last Updated"}

// Export writes an XLSX workbook with every material and the supplier
// breakdown.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	items, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	return writeWorkbook(w, items, summary)
}

func writeWorkbook(w io.Writer, items []Material, summary Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", materialsSheet); err != nil {
		return fmt.Errorf("materials: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(materialsSheet, "A1", &materialHeader); err != nil {
		return fmt.Errorf("materials: write header: %w", err)
	}
	for i, m := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{m.ID, m.PacketNo, m.PartName, m.Length, m.Width, m.Height, m.Quantity, m.Supplier, m.UpdatedBy, m.LastUpdated.String()}
		if err := f.SetSheetRow(materialsSheet, cell, &row); err != nil {
			return fmt.Errorf("materials: write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(suppliersSheet); err != nil {
		return fmt.Errorf("materials: add sheet: %w", err)
	}
	if err := f.SetSheetRow(suppliersSheet, "A1", &[]any{"Supplier", "Items", "Quantity"}); err != nil {
		return err
	}
	for i, st := range summary.Suppliers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(suppliersSheet, cell, &[]any{st.Supplier, st.Items, st.Quantity}); err != nil {
			return err
		}
	}
	totalCell, err := excelize.CoordinatesToCellName(1, len(summary.Suppliers)+2)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(suppliersSheet, totalCell, &[]any{"Total", summary.Totals.Items, summary.Totals.Quantity}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("materials: write workbook: %w", err)
	}
	return nil
}
