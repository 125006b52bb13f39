package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func newExportFixture(cfg *config.ExportConfig) (ExportService, *mockThreadRepo, *mockInteractionRepo, *mockSqlResultRepo) {
	threadRepo := newMockThreadRepo()
	interRepo := newMockInteractionRepo()
	sqlRepo := newMockSqlResultRepo()
	service := NewExportService(threadRepo, interRepo, sqlRepo, cfg, zap.NewNop())
	return service, threadRepo, interRepo, sqlRepo
}

func TestExportThread_NotConfigured(t *testing.T) {
	service, _, _, _ := newExportFixture(&config.ExportConfig{})

	_, err := service.ExportThread(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExportThread_UnknownThread(t *testing.T) {
	service, _, _, _ := newExportFixture(&config.ExportConfig{S3Bucket: "reports"})

	_, err := service.ExportThread(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExportThread_NothingToWrite(t *testing.T) {
	service, threadRepo, interRepo, _ := newExportFixture(&config.ExportConfig{S3Bucket: "reports"})

	thread := &models.Thread{ID: uuid.New()}
	threadRepo.Threads[thread.ID] = thread
	// A chitchat interaction carries no result rows.
	require.NoError(t, interRepo.Create(context.Background(), &models.Interaction{
		ThreadID: thread.ID,
		Query:    "hello",
	}))

	_, err := service.ExportThread(context.Background(), thread.ID)

	assert.ErrorIs(t, err, apperrors.ErrExportNothingToWrite)
}

func TestWriteSheet(t *testing.T) {
	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	rows := []map[string]any{
		{"region": "east", "revenue": 100},
		{"region": "west", "revenue": 250},
	}
	require.NoError(t, writeSheet(workbook, sheet, rows))

	// Header comes from the first record's columns, sorted.
	header, err := workbook.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "region", header)
	header, err = workbook.GetCellValue(sheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "revenue", header)

	value, err := workbook.GetCellValue(sheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "west", value)
	value, err = workbook.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "250", value)
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Monthly Revenue", "Monthly Revenue"},
		{"forbidden chars", "q1/q2: totals?", "q1 q2  totals"},
		{"empty", "  ", "Sheet"},
		{"capped", "a very long topic name that keeps going and going", "a very long topic name that kee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeSheetName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxSheetNameLen)
		})
	}
}
