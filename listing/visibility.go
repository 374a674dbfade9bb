package listing

import (
	"gorm.io/gorm"

	"carlot/models"
)

// VisibleTo 限制查詢只包含 p 可以看見的刊登
//   - 管理人員: 全部
//   - 登入使用者: 已核准且上架中的刊登，加上自己的刊登
//   - 匿名使用者: 已核准且上架中的刊登
func VisibleTo(p *Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.IsModerator():
			return db
		case p.Authenticated():
			return db.Where("((status = ? AND is_active = ?) OR seller_id = ?)", models.StatusApproved, true, p.ID)
		default:
			return db.Where("status = ? AND is_active = ?", models.StatusApproved, true)
		}
	}
}
