package handler

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// mailboxNamePattern 邮箱名或完整地址
var mailboxNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+(@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})?$`)

type MailHandler struct {
	mailService *service.MailService
}

func NewMailHandler(mailService *service.MailService) *MailHandler {
	return &MailHandler{mailService: mailService}
}

type mailboxRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建邮箱
// @Summary 创建邮箱
// @Tags Mail
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body mailboxRequest true "邮箱名或完整地址"
// @Success 200 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /api/mailboxes [post]
func (h *MailHandler) Create(c *gin.Context) {
	var req mailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}
	if !mailboxNamePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid mailbox name"))
		return
	}

	result, err := h.mailService.CreateMailbox(req.Name)
	if err != nil {
		if errors.Is(err, service.ErrMailboxExists) {
			c.JSON(http.StatusConflict, model.Error(409, err.Error()))
			return
		}
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(result))
}

// ResetPassword 重置邮箱密码
// @Summary 重置邮箱密码
// @Tags Mail
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body mailboxRequest true "邮箱名或完整地址"
// @Success 200 {object} model.Response
// @Router /api/mailboxes/reset-password [post]
func (h *MailHandler) ResetPassword(c *gin.Context) {
	var req mailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}
	if !mailboxNamePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid mailbox name"))
		return
	}

	result, err := h.mailService.ResetPassword(req.Name)
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(result))
}
