package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/vendsync/internal/config"
	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
// Extra client options are appended after the credentials file.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if cfg.CredentialsPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// ReportSheet stores sync reports as rows of a sheet range.
type ReportSheet struct {
	repo       Repository
	sheetRange string
}

// NewReportSheet writes reports into sheetRange through repo.
func NewReportSheet(repo Repository, sheetRange string) *ReportSheet {
	return &ReportSheet{repo: repo, sheetRange: sheetRange}
}

// SaveSyncReport appends one row per report.
func (s *ReportSheet) SaveSyncReport(ctx context.Context, report models.SyncReport) error {
	return s.repo.WriteRow(ctx, s.sheetRange, ReportRow(report))
}

// CountReports returns the number of report rows, skipping a header row if present.
func (s *ReportSheet) CountReports(ctx context.Context) (int, error) {
	rows, err := s.repo.ReadRange(ctx, s.sheetRange)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		if len(row) == 0 || fmt.Sprint(row[0]) == reportHeader[0] {
			continue
		}
		n++
	}
	return n, nil
}

var reportHeader = []string{
	"report_id", "generated_at", "position_status", "position_source",
	"machines", "inventory_items", "search_results", "out_of_stock",
	"channel_state", "connects", "deltas_received", "cache_version",
}

// ReportRow lays a report out in reportHeader column order.
func ReportRow(r models.SyncReport) []interface{} {
	return []interface{}{
		r.ID,
		r.GeneratedAt.UTC().Format(time.RFC3339),
		r.PositionStatus,
		r.PositionSource,
		r.Machines,
		r.InventoryItems,
		r.SearchResults,
		r.OutOfStock,
		r.ChannelState,
		r.Connects,
		r.DeltasReceived,
		r.CacheVersion,
	}
}
