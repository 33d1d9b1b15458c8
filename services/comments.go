package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qabbs/models"
)

// CreateComment attaches actorID's comment to an existing question or answer.
// Comments carry no reputation effect.
func (c *Coordinator) CreateComment(ctx context.Context, actorID uint, parent models.Target, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !parent.Kind.Valid() || parent.ID == 0 {
		return nil, ErrInvalidParent
	}

	comment := models.Comment{UserID: actorID, Content: content}
	comment.SetParent(parent)

	err := transact(ctx, c.db, func(tx *gorm.DB) error {
		comment.ID = 0
		if _, err := lockTarget(tx, parent); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
