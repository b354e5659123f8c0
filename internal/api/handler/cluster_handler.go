package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fisker/cloudlease-backend/internal/api/middleware"
	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type ClusterHandler struct {
	clusterService *service.ClusterService
}

func NewClusterHandler(clusterService *service.ClusterService) *ClusterHandler {
	return &ClusterHandler{clusterService: clusterService}
}

type createClusterRequest struct {
	Name      string `json:"name" binding:"required"`
	Region    string `json:"region" binding:"required"`
	Version   string `json:"version" binding:"required"`
	NodeSize  string `json:"node_size" binding:"required"`
	NodeCount int    `json:"node_count" binding:"required,min=1,max=20"`
	HA        bool   `json:"ha"`
	Days      int    `json:"days" binding:"required,min=1,max=90"`
}

// Create 创建K8s集群（异步，就绪后由后台轮询通知）
// @Summary 创建K8s集群
// @Tags Cluster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createClusterRequest true "创建参数"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /api/clusters [post]
func (h *ClusterHandler) Create(c *gin.Context) {
	var req createClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}
	if !resourceNamePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, model.Error(400, "invalid name: must be lowercase alphanumeric with hyphens"))
		return
	}

	cluster, err := h.clusterService.Provision(c.Request.Context(), service.ProvisionClusterParams{
		Name:            req.Name,
		Region:          req.Region,
		Version:         req.Version,
		NodeSize:        req.NodeSize,
		NodeCount:       req.NodeCount,
		HA:              req.HA,
		Days:            req.Days,
		CreatorID:       middleware.CreatorID(c),
		CreatorUsername: middleware.Username(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrClusterExists) {
			c.JSON(http.StatusConflict, model.Error(409, err.Error()))
			return
		}
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(cluster))
}

// List 获取当前创建者的集群列表
// @Summary 获取集群列表
// @Tags Cluster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response
// @Router /api/clusters [get]
func (h *ClusterHandler) List(c *gin.Context) {
	clusters, err := h.clusterService.List(middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(clusters))
}

// Extend 续期集群
// @Summary 续期集群
// @Tags Cluster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Param request body extendRequest true "续期天数"
// @Success 200 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /api/clusters/{id}/extend [post]
func (h *ClusterHandler) Extend(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		model.HandleError(c, http.StatusBadRequest, err, "invalid request")
		return
	}

	newExp, found, err := h.clusterService.Extend(c.Param("id"), req.Days, middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, model.Error(404, "cluster not found"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{
		"new_expiration": model.FormatExpiration(newExp),
	}))
}

// Delete 删除集群
// @Summary 删除集群
// @Tags Cluster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Success 200 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /api/clusters/{id} [delete]
func (h *ClusterHandler) Delete(c *gin.Context) {
	found, err := h.clusterService.Delete(c.Request.Context(), c.Param("id"), middleware.CreatorID(c))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, model.Error(404, "cluster not found"))
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}

// Options 获取可选的K8s版本和节点规格
// @Summary 获取集群创建选项
// @Tags Cluster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response
// @Router /api/clusters/options [get]
func (h *ClusterHandler) Options(c *gin.Context) {
	opts, err := h.clusterService.Options(c.Request.Context())
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(opts))
}

// Kubeconfig 下载集群访问凭据
// @Summary 下载kubeconfig
// @Tags Cluster
// @Produce application/x-yaml
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Success 200 {file} binary
// @Failure 404 {object} model.Response
// @Router /api/clusters/{id}/kubeconfig [get]
func (h *ClusterHandler) Kubeconfig(c *gin.Context) {
	name, data, found, err := h.clusterService.Kubeconfig(c.Request.Context(), c.Param("id"), middleware.CreatorID(c))
	if !found {
		if err != nil {
			model.HandleError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusNotFound, model.Error(404, "cluster not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, model.Error(409, err.Error()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/x-yaml", data)
}
