package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	reportFolder      = "reports"
	reportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ordersSheet       = "Orders"
	itemsSheet        = "Items"
)

var (
	orderHeader = []interface{}{"Order ID", "Tracking code", "Placed at", "Status", "Customer", "Email", "Phone", "Address", "Delivery", "Payment", "Total"}
	itemHeader  = []interface{}{"Order ID", "Tracking code", "Product ID", "Product", "Quantity", "Unit price", "Subtotal"}
)

type ReportService interface {
	ExportOrders(ctx context.Context, from, to *time.Time) (*storage.StoredObject, error)
}

type reportService struct {
	orderRepo repository.OrderRepository
	store     storage.ObjectStore
	now       func() time.Time
}

func NewReportService(orderRepo repository.OrderRepository, store storage.ObjectStore) ReportService {
	return &reportService{orderRepo: orderRepo, store: store, now: time.Now}
}

// ExportOrders writes every order created in [from, to) to a workbook and
// uploads it. Either bound may be nil.
func (s *reportService) ExportOrders(ctx context.Context, from, to *time.Time) (*storage.StoredObject, error) {
	orders, err := s.orderRepo.FindAll(ctx, repository.OrderFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	body, err := BuildOrdersWorkbook(orders)
	if err != nil {
		logger.Error("Failed to build order report", err, map[string]interface{}{
			"orders": len(orders),
		})
		return nil, err
	}

	filename := fmt.Sprintf("orders-%s.xlsx", s.now().UTC().Format("20060102-150405"))
	obj, err := s.store.Put(ctx, reportFolder, filename, reportContentType, body)
	if err != nil {
		logger.Error("Failed to upload order report", err, map[string]interface{}{
			"filename": filename,
		})
		return nil, err
	}

	logger.Info("Order report exported", map[string]interface{}{
		"key":    obj.Key,
		"orders": len(orders),
	})
	return obj, nil
}

// BuildOrdersWorkbook renders orders and their lines on two sheets.
func BuildOrdersWorkbook(orders []model.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(ordersSheet, "A1", &orderHeader); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &itemHeader); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, o := range orders {
		row := []interface{}{
			o.ID,
			o.ShortID(),
			o.CreatedAt.UTC().Format(time.RFC3339),
			string(o.Status),
			o.CustomerName,
			o.CustomerEmail,
			o.CustomerPhone,
			o.CustomerAddress,
			string(o.DeliveryMethod),
			string(o.PaymentMethod),
			o.Total.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return nil, err
		}

		for _, item := range o.OrderItems {
			line := []interface{}{
				o.ID,
				o.ShortID(),
				item.ProductID,
				item.Product.Name,
				item.Quantity,
				item.Price.InexactFloat64(),
				item.Subtotal().InexactFloat64(),
			}
			cell, err := excelize.CoordinatesToCellName(1, itemRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(itemsSheet, cell, &line); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
