package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/xuri/excelize/v2"
)

const exportPageSize = 500

var requestExportHeaders = []string{
	"Request ID", "User ID", "Service", "Status", "Priority",
	"Requested Date", "Approved Date", "Completion Date", "Total Amount", "Notes",
}

// ExportService 员工导出
type ExportService struct {
	requests RequestStore
}

func NewExportService(requests RequestStore) *ExportService {
	return &ExportService{requests: requests}
}

// ExportRequests 按条件导出服务请求，返回工作簿与文件名
func (s *ExportService) ExportRequests(ctx context.Context, f repository.ServiceRequestFilter) (*excelize.File, string, error) {
	var all []entity.ServiceRequest
	f.PageSize = exportPageSize
	for page := 1; ; page++ {
		f.Page = page
		items, total, err := s.requests.List(ctx, f)
		if err != nil {
			return nil, "", fmt.Errorf("list service requests: %w", err)
		}
		all = append(all, items...)
		if len(items) == 0 || int64(len(all)) >= total {
			break
		}
	}

	file := excelize.NewFile()
	sheet := "Requests"
	file.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range requestExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		file.SetCellValue(sheet, cell, h)
		file.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for idx, r := range all {
		row := idx + 2
		serviceName := ""
		if r.Service != nil {
			serviceName = r.Service.Name
		}
		file.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.RequestID)
		file.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.UserID)
		file.SetCellValue(sheet, fmt.Sprintf("C%d", row), serviceName)
		file.SetCellValue(sheet, fmt.Sprintf("D%d", row), entity.StatusName(r.StatusID))
		file.SetCellValue(sheet, fmt.Sprintf("E%d", row), entity.PriorityText(r.Priority))
		file.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.RequestedDate.Format("2006-01-02 15:04"))
		if r.ApprovedDate != nil {
			file.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.ApprovedDate.Format("2006-01-02 15:04"))
		}
		if r.CompletionDate != nil {
			file.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.CompletionDate.Format("2006-01-02 15:04"))
		}
		if r.TotalAmount.Valid {
			amount, _ := r.TotalAmount.Decimal.Float64()
			file.SetCellValue(sheet, fmt.Sprintf("I%d", row), amount)
		}
		file.SetCellValue(sheet, fmt.Sprintf("J%d", row), r.Notes)
	}

	file.SetColWidth(sheet, "A", "B", 12)
	file.SetColWidth(sheet, "C", "C", 28)
	file.SetColWidth(sheet, "D", "I", 16)
	file.SetColWidth(sheet, "J", "J", 40)

	filename := fmt.Sprintf("service_requests_%s.xlsx", time.Now().Format("20060102_150405"))
	return file, filename, nil
}
