package report

import (
	"time"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Orders"

type XLSX struct {
	title string
	now   func() time.Time
}

func NewXLSX(title string) *XLSX {
	return &XLSX{title: title, now: time.Now}
}

func (x *XLSX) Format() string { return "xlsx" }

// Generate lays out title, export time, an empty line, the header row and the orders.
func (x *XLSX) Generate(orders []*models.Order, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	if err := f.SetCellValue(xlsxSheet, "A1", x.title); err != nil {
		return errors.Wrap(err, "write title")
	}
	if err := f.SetCellValue(xlsxSheet, "A2", exportedAtLine(x.now())); err != nil {
		return errors.Wrap(err, "write timestamp")
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A4", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create style")
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 4)
	if err := f.SetCellStyle(xlsxSheet, "A4", last, bold); err != nil {
		return errors.Wrap(err, "style header")
	}

	for i, o := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+5)
		// id числом, остальное текстом
		values := []any{o.ID, o.DriverName, o.CarNumber, o.ClientPhone, o.OrderStatus}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write order %d", o.ID)
		}
	}
	_ = f.SetColWidth(xlsxSheet, "B", "E", 22)

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save xlsx")
	}
	return nil
}
