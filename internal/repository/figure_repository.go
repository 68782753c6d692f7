package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"thucydides/internal/model"
)

type FigureRepository struct {
	db *gorm.DB
}

func NewFigureRepository(db *gorm.DB) *FigureRepository {
	return &FigureRepository{db: db}
}

func (r *FigureRepository) GetByID(id uint) (*model.Figure, error) {
	var figure model.Figure
	if err := r.db.First(&figure, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get figure failed: %w", err)
	}
	return &figure, nil
}

func (r *FigureRepository) ListAll() ([]model.Figure, error) {
	var figures []model.Figure
	if err := r.db.Order("name ASC").Find(&figures).Error; err != nil {
		return nil, fmt.Errorf("list figures failed: %w", err)
	}
	return figures, nil
}

func (r *FigureRepository) ListFeatured(limit int) ([]model.Figure, error) {
	if limit <= 0 {
		limit = 3
	}
	var figures []model.Figure
	if err := r.db.Limit(limit).Find(&figures).Error; err != nil {
		return nil, fmt.Errorf("list featured figures failed: %w", err)
	}
	return figures, nil
}

// Upsert inserts the figure or updates it in place, matched by name. Used by
// the ingestion seeding path only.
func (r *FigureRepository) Upsert(figure *model.Figure) error {
	var existing model.Figure
	err := r.db.Where("name = ?", figure.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.Create(figure).Error; err != nil {
			return fmt.Errorf("create figure failed: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query figure by name failed: %w", err)
	default:
		figure.ID = existing.ID
		if err := r.db.Save(figure).Error; err != nil {
			return fmt.Errorf("update figure failed: %w", err)
		}
		return nil
	}
}
