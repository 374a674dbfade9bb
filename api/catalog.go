package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carlot/catalog"
	"carlot/validation"
)

// catalogHandlers 為一種參考資料提供 CRUD 路由，寫入只開放給管理人員
type catalogHandlers[T any, PT catalog.Entry[T]] struct {
	impl *ServerImpl
	name string
}

func registerCatalog[T any, PT catalog.Entry[T]](impl *ServerImpl, router gin.IRouter, path string) {
	h := catalogHandlers[T, PT]{impl: impl, name: path[1:]}
	group := router.Group(path)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("", impl.requireStaff, h.create)
	group.PUT("/:id", impl.requireStaff, h.update)
	group.DELETE("/:id", impl.requireStaff, h.delete)
}

// (GET /api/{catalog})
func (h catalogHandlers[T, PT]) list(c *gin.Context) {
	op := "List:" + h.name
	param, _ := catalog.ParentColumn[T, PT]()
	parentID, err := parseParentID(c, param)
	if err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	entries, err := catalog.List[T, PT](c.Request.Context(), h.impl.db, parentID)
	if err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// (GET /api/{catalog}/{id})
func (h catalogHandlers[T, PT]) get(c *gin.Context) {
	op := "Get:" + h.name
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry, err := catalog.Get[T, PT](c.Request.Context(), h.impl.db, id)
	if err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// (POST /api/{catalog})
func (h catalogHandlers[T, PT]) create(c *gin.Context) {
	op := "Create:" + h.name
	entry := PT(new(T))
	if err := c.ShouldBindJSON(entry); err != nil {
		renderBindError(c, err)
		return
	}
	if err := catalog.Create[T, PT](c.Request.Context(), h.impl.db, entry); err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// (PUT /api/{catalog}/{id})
func (h catalogHandlers[T, PT]) update(c *gin.Context) {
	op := "Update:" + h.name
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry := PT(new(T))
	if err := c.ShouldBindJSON(entry); err != nil {
		renderBindError(c, err)
		return
	}
	if err := catalog.Update[T, PT](c.Request.Context(), h.impl.db, id, entry); err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// (DELETE /api/{catalog}/{id})
func (h catalogHandlers[T, PT]) delete(c *gin.Context) {
	op := "Delete:" + h.name
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := catalog.Delete[T, PT](c.Request.Context(), h.impl.db, id); err != nil {
		h.impl.renderError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseParentID 解析上層資料的查詢參數，未提供時返回 nil
func parseParentID(c *gin.Context, param string) (*uuid.UUID, error) {
	if param == "" {
		return nil, nil
	}
	raw := c.Query(param)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, validation.Field(param, fmt.Sprintf("\"%s\" is not a valid UUID.", raw))
	}
	return &id, nil
}
