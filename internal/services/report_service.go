package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/repositories"
)

// ReportService runs the accountability reports over committed data
type ReportService struct {
	reportRepo *repositories.ReportRepository
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{reportRepo: repositories.NewReportRepository(db)}
}

// parseRange parses optional wire dates, defaulting to an open range
func parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" {
		start = "1970-01-01"
	}
	if end == "" {
		end = "9999-12-31"
	}

	from, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// Entries reports received quantities per day, donor and item
func (s *ReportService) Entries(ctx context.Context, start, end string) ([]repositories.EntryReportRow, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.Entries(ctx, from, to)
}

// Outflows reports distributed quantities per day, institution and item
func (s *ReportService) Outflows(ctx context.Context, start, end string) ([]repositories.OutflowReportRow, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.Outflows(ctx, from, to)
}

// ByInstitution reports distributed quantities per institution and item
func (s *ReportService) ByInstitution(ctx context.Context, start, end string) ([]repositories.InstitutionReportRow, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.ByInstitution(ctx, from, to)
}

// Detailed lists every consumption record with its distribution context
func (s *ReportService) Detailed(ctx context.Context, start, end string) ([]repositories.DetailedReportRow, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.Detailed(ctx, from, to)
}
