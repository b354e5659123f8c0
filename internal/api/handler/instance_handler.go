package handler

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/fisker/cloudlease-backend/internal/api/middleware"
	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// resourceNamePattern 资源名规则：DNS兼容，小写字母开头，可含数字和连字符
var resourceNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)

type InstanceHandler struct {
	instanceService *service.InstanceService
}

func NewInstanceHandler(instanceService *service.InstanceService) *InstanceHandler {
	return &InstanceHandler{instanceService: instanceService}
}

type createInstanceRequest struct {
	Name     string `json:"name" binding:"required"`
	Region   string `json:"region"`
	Size     string `json:"size" binding:"required"`
	Image    string `json:"image" binding:"required"`
	SSHKeyID int64  `json:"ssh_key_id" binding:"required"`
	Days     int    `json:"days" binding:"required,min=1,max=90"`
	DNSZone  string `json:"dns_zone"`
}

// Create 创建云主机
// @Summary 创建云主机
// @Tags Instance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createInstanceRequest true "创建参数"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Router /api/instances [post]
func (h *InstanceHandler) Create(c *gin.Context) {
	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}
	if !resourceNamePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid name: must be lowercase alphanumeric with hyphens"))
		return
	}

	inst, err := h.instanceService.Provision(c.Request.Context(), service.ProvisionInstanceParams{
		Name:            req.Name,
		Region:          req.Region,
		Size:            req.Size,
		Image:           req.Image,
		SSHKeyID:        req.SSHKeyID,
		Days:            req.Days,
		CreatorID:       middleware.CreatorID(c),
		CreatorUsername: middleware.Username(c),
		DNSZone:         req.DNSZone,
	})
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(inst))
}

// List 获取当前创建者的云主机列表
// @Summary 获取云主机列表
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response
// @Router /api/instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	instances, err := h.instanceService.List(middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(instances))
}

type extendRequest struct {
	Days int `json:"days" binding:"required,min=1,max=90"`
}

// Extend 续期云主机
// @Summary 续期云主机
// @Tags Instance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Droplet ID"
// @Param request body extendRequest true "续期天数"
// @Success 200 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /api/instances/{id}/extend [post]
func (h *InstanceHandler) Extend(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid instance id"))
		return
	}
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}

	newExp, found, err := h.instanceService.Extend(id, req.Days, middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, model.Error(404, "instance not found"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{
		"new_expiration": model.FormatExpiration(newExp),
	}))
}

// Delete 删除云主机
// @Summary 删除云主机
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Droplet ID"
// @Success 200 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /api/instances/{id} [delete]
func (h *InstanceHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid instance id"))
		return
	}

	found, err := h.instanceService.Delete(c.Request.Context(), id, middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, model.Error(404, "instance not found"))
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}

// Options 获取创建云主机的可选项（密钥/镜像/规格/域名）
// @Summary 获取创建选项
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response
// @Router /api/instances/options [get]
func (h *InstanceHandler) Options(c *gin.Context) {
	opts, err := h.instanceService.ListOptions(c.Request.Context(), middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(opts))
}
