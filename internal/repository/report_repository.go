package repository

import (
	"context"

	"github.com/lonestarmarket/backend/internal/model"
	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(ctx context.Context, rep *model.Report) error
	SetSeverity(ctx context.Context, id string, severity float64) error
	SetDB(db *gorm.DB)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *reportRepository) Create(ctx context.Context, rep *model.Report) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *reportRepository) SetSeverity(ctx context.Context, id string, severity float64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Model(&model.Report{}).
		Where("id = ?", id).
		Update("severity", severity).Error
}
