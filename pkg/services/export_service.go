package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

const maxSheetNameLen = 31

// ExportResult describes one uploaded report spreadsheet.
type ExportResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	RowCount int    `json:"row_count"`
}

// ExportService renders a thread's query results to a spreadsheet and
// uploads it to object storage.
type ExportService interface {
	// ExportThread writes one sheet per interaction that produced rows.
	// Fails with ErrExportNothingToWrite when no interaction has rows.
	ExportThread(ctx context.Context, threadID uuid.UUID) (*ExportResult, error)
}

type exportService struct {
	threadRepo      repositories.ThreadRepository
	interactionRepo repositories.InteractionRepository
	sqlResultRepo   repositories.SqlResultRepository
	cfg             *config.ExportConfig
	logger          *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	threadRepo repositories.ThreadRepository,
	interactionRepo repositories.InteractionRepository,
	sqlResultRepo repositories.SqlResultRepository,
	cfg *config.ExportConfig,
	logger *zap.Logger,
) ExportService {
	return &exportService{
		threadRepo:      threadRepo,
		interactionRepo: interactionRepo,
		sqlResultRepo:   sqlResultRepo,
		cfg:             cfg,
		logger:          logger.Named("export"),
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) ExportThread(ctx context.Context, threadID uuid.UUID) (*ExportResult, error) {
	if !s.cfg.IsConfigured() {
		return nil, fmt.Errorf("%w: export storage is not configured", apperrors.ErrInvalidInput)
	}

	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	interactions, err := s.interactionRepo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	totalRows := 0
	sheetIndex := 0
	for _, interaction := range interactions {
		if interaction.SqlResultID == nil {
			continue
		}
		sqlResult, err := s.sqlResultRepo.GetByID(ctx, *interaction.SqlResultID)
		if err != nil || len(sqlResult.Rows) == 0 {
			continue
		}

		sheetIndex++
		sheetName := sanitizeSheetName(fmt.Sprintf("%d %s", sheetIndex, interaction.Query))
		if sheetIndex == 1 {
			if err := workbook.SetSheetName(workbook.GetSheetName(0), sheetName); err != nil {
				return nil, fmt.Errorf("failed to name sheet: %w", err)
			}
		} else {
			if _, err := workbook.NewSheet(sheetName); err != nil {
				return nil, fmt.Errorf("failed to add sheet: %w", err)
			}
		}

		if err := writeSheet(workbook, sheetName, sqlResult.Rows); err != nil {
			return nil, err
		}
		totalRows += len(sqlResult.Rows)
	}

	if sheetIndex == 0 {
		return nil, apperrors.ErrExportNothingToWrite
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	key := fmt.Sprintf("reports/report_%s_%s.xlsx", thread.ID, time.Now().UTC().Format("20060102T150405"))
	url, err := s.upload(ctx, key, buf)
	if err != nil {
		return nil, err
	}

	s.logger.Info("thread exported",
		zap.String("thread_id", threadID.String()),
		zap.String("key", key),
		zap.Int("rows", totalRows))

	return &ExportResult{Key: key, URL: url, RowCount: totalRows}, nil
}

func writeSheet(workbook *excelize.File, sheetName string, rows []map[string]any) error {
	columns := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	header := make([]any, len(columns))
	for i, name := range columns {
		header[i] = name
	}
	if err := workbook.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, name := range columns {
			values[j] = row[name]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := workbook.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// sanitizeSheetName makes a string acceptable to the spreadsheet format:
// forbidden characters replaced and length capped at 31.
func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(
		":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
	name = strings.TrimSpace(replacer.Replace(name))
	if name == "" {
		name = "Sheet"
	}
	runes := []rune(name)
	if len(runes) > maxSheetNameLen {
		runes = runes[:maxSheetNameLen]
	}
	return string(runes)
}

func (s *exportService) upload(ctx context.Context, key string, buf *bytes.Buffer) (string, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.cfg.S3Region),
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	if s.cfg.S3Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.S3Endpoint, "/"), s.cfg.S3Bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.S3Region, key), nil
}
