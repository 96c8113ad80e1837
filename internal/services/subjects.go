package services

import (
	"context"
	"fmt"
	"time"

	"alumnilink/internal/models"
	"alumnilink/internal/utils"

	"gorm.io/gorm"
)

// SubjectChecker 判断评论主体（新闻）是否存在。
type SubjectChecker interface {
	SubjectExists(ctx context.Context, subjectID uint) (bool, error)
}

// NewsChecker 直接查 news 表。
type NewsChecker struct {
	db *gorm.DB
}

func NewNewsChecker(db *gorm.DB) *NewsChecker {
	return &NewsChecker{db: db}
}

func (c *NewsChecker) SubjectExists(ctx context.Context, subjectID uint) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&models.News{}).Where("id = ?", subjectID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count news %d: %w", subjectID, err)
	}
	return count > 0, nil
}

// CachedSubjectChecker 只缓存"存在"的结果，新建的新闻不会被负缓存挡住。
type CachedSubjectChecker struct {
	next  SubjectChecker
	cache *utils.TTLCache[uint, bool]
}

func NewCachedSubjectChecker(next SubjectChecker, size int, ttl time.Duration) (*CachedSubjectChecker, error) {
	cache, err := utils.NewTTLCache[uint, bool](size, ttl)
	if err != nil {
		return nil, err
	}
	return &CachedSubjectChecker{next: next, cache: cache}, nil
}

func (c *CachedSubjectChecker) SubjectExists(ctx context.Context, subjectID uint) (bool, error) {
	if _, ok := c.cache.Get(subjectID); ok {
		return true, nil
	}
	exists, err := c.next.SubjectExists(ctx, subjectID)
	if err != nil {
		return false, err
	}
	if exists {
		c.cache.Set(subjectID, true)
	}
	return exists, nil
}

// Forget 主体被删除时调用。
func (c *CachedSubjectChecker) Forget(subjectID uint) {
	c.cache.Delete(subjectID)
}
