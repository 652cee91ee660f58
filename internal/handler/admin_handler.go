package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/votegate/internal/model"
	"github.com/xxxsen/votegate/internal/pkg/response"
	"github.com/xxxsen/votegate/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityItem struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type addIdentitiesRequest struct {
	Identities []identityItem `json:"identities"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		invalidRequest(c, "username and password required")
		return
	}
	token, err := h.admin.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *AdminHandler) ListIdentities(c *gin.Context) {
	roster, err := h.admin.Roster(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"identities": roster})
}

func (h *AdminHandler) AddIdentities(c *gin.Context) {
	var req addIdentitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	if len(req.Identities) == 0 {
		invalidRequest(c, "identities required")
		return
	}
	items := make([]model.Identity, 0, len(req.Identities))
	for _, item := range req.Identities {
		items = append(items, model.Identity{Email: item.Email, DisplayName: item.DisplayName})
	}
	added, err := h.admin.AddIdentities(c.Request.Context(), items)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"added": added})
}

func (h *AdminHandler) DeleteIdentity(c *gin.Context) {
	if err := h.admin.DeleteIdentity(c.Request.Context(), c.Param("email")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AdminHandler) CodeLedger(c *gin.Context) {
	ledger, err := h.admin.CodeLedger(c.Request.Context(), c.Param("email"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ledger)
}

func (h *AdminHandler) Submissions(c *gin.Context) {
	list, err := h.admin.Submissions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"submissions": list})
}

func (h *AdminHandler) Reset(c *gin.Context) {
	result, err := h.admin.Reset(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
