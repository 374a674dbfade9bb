package listing

import (
	"github.com/google/uuid"

	"carlot/models"
)

// Principal 是已通過驗證的請求者，nil 代表匿名使用者
type Principal struct {
	ID          uuid.UUID
	Role        models.Role
	IsStaff     bool
	IsSuperuser bool
}

// PrincipalOf 由使用者資料建立 Principal
func PrincipalOf(u *models.User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{ID: u.ID, Role: u.Role, IsStaff: u.IsStaff, IsSuperuser: u.IsSuperuser}
}

func (p *Principal) Authenticated() bool {
	return p != nil && p.ID != uuid.Nil
}

// IsModerator 回傳是否為可審核刊登的管理人員
func (p *Principal) IsModerator() bool {
	return p.Authenticated() && (p.IsStaff || p.IsSuperuser)
}

// CanSell 回傳是否可以建立或修改刊登
func (p *Principal) CanSell() bool {
	return p.Authenticated() && (p.Role == models.RoleSeller || p.IsModerator())
}

// CanEdit 回傳是否可以修改指定的刊登(賣家本人或管理人員)
func (p *Principal) CanEdit(l *models.Listing) bool {
	return p.IsModerator() || (p.Authenticated() && l.SellerID == p.ID)
}

// authorizeWrite 檢查寫入操作的基本權限
func authorizeWrite(p *Principal) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.CanSell() {
		return ErrPermissionDenied
	}
	return nil
}
