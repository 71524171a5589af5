package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcade/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DemoInput carries the caller-editable demo fields. Nil optional fields are
// left untouched on update.
type DemoInput struct {
	Title       string
	Description string
	Type        string
	Content     string
	Thumbnail   *string
	URL         *string
	IsPublic    *bool
}

// DemoService scopes every read and write to the owning user.
type DemoService struct {
	DB *gorm.DB
}

func NewDemoService(db *gorm.DB) *DemoService {
	return &DemoService{DB: db}
}

func (s *DemoService) Create(ctx context.Context, ownerID uuid.UUID, input DemoInput) (*models.Demo, error) {
	demo := models.Demo{
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Content:     input.Content,
		Thumbnail:   input.Thumbnail,
		URL:         input.URL,
		UserID:      ownerID,
		Views:       0,
	}
	if input.IsPublic != nil {
		demo.IsPublic = *input.IsPublic
	}

	if err := s.DB.WithContext(ctx).Create(&demo).Error; err != nil {
		return nil, fmt.Errorf("create demo: %w", err)
	}
	return &demo, nil
}

func (s *DemoService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Demo, error) {
	demos := make([]models.Demo, 0)
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&demos).Error
	if err != nil {
		return nil, fmt.Errorf("list demos: %w", err)
	}
	return demos, nil
}

// View counts one view and returns the demo as stored after the increment.
func (s *DemoService) View(ctx context.Context, ownerID, demoID uuid.UUID) (*models.Demo, error) {
	var demo models.Demo
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Demo{}).
			Where("id = ? AND user_id = ?", demoID, ownerID).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDemoNotFound
		}
		return tx.First(&demo, "id = ? AND user_id = ?", demoID, ownerID).Error
	})
	if err != nil {
		return nil, mapDemoError("view demo", err)
	}
	return &demo, nil
}

// GetPublic returns a demo only when its owner marked it public.
func (s *DemoService) GetPublic(ctx context.Context, demoID uuid.UUID) (*models.Demo, error) {
	var demo models.Demo
	err := s.DB.WithContext(ctx).First(&demo, "id = ? AND is_public = ?", demoID, true).Error
	if err != nil {
		return nil, mapDemoError("get public demo", err)
	}
	return &demo, nil
}

// Update writes only caller-editable columns so a concurrent view increment
// is never overwritten.
func (s *DemoService) Update(ctx context.Context, ownerID, demoID uuid.UUID, input DemoInput) (*models.Demo, error) {
	updates := map[string]interface{}{
		"title":       input.Title,
		"description": input.Description,
		"type":        input.Type,
		"content":     input.Content,
		"updated_at":  time.Now(),
	}
	if input.Thumbnail != nil {
		updates["thumbnail"] = *input.Thumbnail
	}
	if input.URL != nil {
		updates["url"] = *input.URL
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}

	var demo models.Demo
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Demo{}).
			Where("id = ? AND user_id = ?", demoID, ownerID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDemoNotFound
		}
		return tx.First(&demo, "id = ? AND user_id = ?", demoID, ownerID).Error
	})
	if err != nil {
		return nil, mapDemoError("update demo", err)
	}
	return &demo, nil
}

func (s *DemoService) Delete(ctx context.Context, ownerID, demoID uuid.UUID) error {
	result := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", demoID, ownerID).
		Delete(&models.Demo{})
	if result.Error != nil {
		return fmt.Errorf("delete demo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDemoNotFound
	}
	return nil
}

func mapDemoError(op string, err error) error {
	if errors.Is(err, ErrDemoNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDemoNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
