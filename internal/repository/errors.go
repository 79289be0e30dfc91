package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/internal/model"
)

// translate 把 gorm / 驱动错误映射到领域错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", model.ErrConstraintViolation, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", model.ErrConstraintViolation, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// 引用的帖子 / 用户已不存在
		return fmt.Errorf("%w: %v", model.ErrNotFound, err)
	// 驱动未翻译时按错误文本兜底（sqlite 驱动只翻译唯一键冲突）
	case strings.Contains(err.Error(), "chk_follows_not_self"):
		return fmt.Errorf("%w: %v", model.ErrConstraintViolation, err)
	case strings.Contains(strings.ToLower(err.Error()), "foreign key"):
		return fmt.Errorf("%w: %v", model.ErrNotFound, err)
	default:
		return err
	}
}
