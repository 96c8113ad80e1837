package handlers

import (
	"net/http"

	"alumnilink/internal/services"
	"alumnilink/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	reconcile *services.ReconcileService
}

func NewAdminHandler(reconcile *services.ReconcileService) *AdminHandler {
	return &AdminHandler{reconcile: reconcile}
}

// Reconcile POST /api/admin/comments/reconcile?subject_id=
// 不带 subject_id 时校准全部评论。
func (h *AdminHandler) Reconcile(c *gin.Context) {
	var subjectID uint
	if raw := c.Query("subject_id"); raw != "" {
		id, err := utils.ParseID(raw)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "无效的 subject_id")
			return
		}
		subjectID = id
	}

	report, err := h.reconcile.ReconcileNow(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
