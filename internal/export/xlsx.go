// Package export renders orders as spreadsheets for the admin dashboard.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/justuche224/swift/internal/domain"
	"github.com/tealeg/xlsx"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var (
	orderHeaders = []string{
		"Order ID", "Tracking Code", "Status", "Recipient", "Email", "Phone",
		"Address", "City", "Zip Code", "Gift Message", "Items", "Total",
		"Estimated Arrival", "Created At", "Updated At",
	}
	itemHeaders = []string{
		"Order ID", "Tracking Code", "Product ID", "Name", "Variant", "Unit Price", "Quantity", "Subtotal",
	}
)

// WriteOrdersXLSX writes an "Orders" sheet with one row per order and an
// "Items" sheet with one row per line item.
func WriteOrdersXLSX(w io.Writer, orders []domain.Order) error {
	file := xlsx.NewFile()

	orderSheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add orders sheet: %w", err)
	}
	itemSheet, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("add items sheet: %w", err)
	}

	addRow(orderSheet, orderHeaders...)
	addRow(itemSheet, itemHeaders...)

	for _, o := range orders {
		quantity := 0
		for _, it := range o.Items {
			quantity += it.Quantity
			addRow(itemSheet,
				o.ID,
				o.TrackingCode,
				it.ProductID,
				it.Name,
				it.Variant,
				it.UnitPrice.StringFixed(2),
				strconv.Itoa(it.Quantity),
				it.Subtotal().StringFixed(2),
			)
		}

		addRow(orderSheet,
			o.ID,
			o.TrackingCode,
			string(o.Status),
			o.Recipient.Name,
			o.Recipient.Email,
			o.Recipient.Phone,
			o.Recipient.Address,
			o.Recipient.City,
			o.Recipient.ZipCode,
			o.Recipient.GiftMessage,
			strconv.Itoa(quantity),
			o.TotalAmount.StringFixed(2),
			o.EstimatedArrival.UTC().Format(timeLayout),
			o.CreatedAt.UTC().Format(timeLayout),
			o.UpdatedAt.UTC().Format(timeLayout),
		)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// Filename names an export taken at the given time.
func Filename(ts time.Time) string {
	return "orders-" + ts.UTC().Format("20060102-150405") + ".xlsx"
}
