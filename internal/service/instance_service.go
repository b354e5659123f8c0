package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// InstanceProvider 实例服务依赖的云API子集
type InstanceProvider interface {
	CreateDroplet(ctx context.Context, params provider.CreateDropletParams) (*provider.Droplet, error)
	DeleteDroplet(ctx context.Context, id int64) error
	CreateDNSRecord(ctx context.Context, zone, name, ip string) (int64, error)
	DeleteDNSRecord(ctx context.Context, zone string, recordID int64) error
	ListSSHKeys(ctx context.Context) ([]provider.SSHKey, error)
	ListImages(ctx context.Context) ([]provider.Image, error)
	ListSizes(ctx context.Context) ([]provider.Size, error)
	ListDomains(ctx context.Context) ([]provider.Domain, error)
	SizePriceHourly(ctx context.Context, slug string) (*decimal.Decimal, error)
}

// InstanceService 云主机租约的前端边界操作
type InstanceService struct {
	repo     *repository.InstanceRepository
	keyRepo  *repository.SSHKeyUsageRepository
	provider InstanceProvider
	notifier *notification.Dispatcher
	now      func() time.Time
}

func NewInstanceService(repo *repository.InstanceRepository, keyRepo *repository.SSHKeyUsageRepository, p InstanceProvider, notifier *notification.Dispatcher) *InstanceService {
	return &InstanceService{
		repo:     repo,
		keyRepo:  keyRepo,
		provider: p,
		notifier: notifier,
		now:      time.Now,
	}
}

// ProvisionInstanceParams 创建云主机的请求参数（名称校验由上层完成）
type ProvisionInstanceParams struct {
	Name            string
	Region          string
	Size            string
	Image           string
	SSHKeyID        int64
	Days            int
	CreatorID       int64
	CreatorUsername string

	// DNSZone 非空时在该托管域下创建 {Name}.{DNSZone} 的 A 记录
	DNSZone string
}

// Provision 创建云主机并落库，失败的DNS绑定不影响创建结果
func (s *InstanceService) Provision(ctx context.Context, params ProvisionInstanceParams) (*model.Instance, error) {
	droplet, err := s.provider.CreateDroplet(ctx, provider.CreateDropletParams{
		Name:     params.Name,
		Region:   params.Region,
		Size:     params.Size,
		Image:    params.Image,
		SSHKeyID: params.SSHKeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create droplet: %w", err)
	}

	price, priceErr := s.provider.SizePriceHourly(ctx, params.Size)
	if priceErr != nil {
		logger.Warnf("[InstanceService] Failed to resolve hourly price for size %s: %v", params.Size, priceErr)
	}

	inst := &model.Instance{
		DropletID:      droplet.ID,
		Name:           droplet.Name,
		IPAddress:      droplet.IPAddress,
		DropletType:    params.Size,
		ExpirationDate: model.FormatExpiration(s.now().AddDate(0, 0, params.Days)),
		PriceHourly:    price,
		CreatorID:      params.CreatorID,
		SSHKeyID:       params.SSHKeyID,
	}
	if params.CreatorUsername != "" {
		inst.CreatorUsername = &params.CreatorUsername
	}
	if err := s.repo.Create(inst); err != nil {
		return nil, fmt.Errorf("droplet %d created but failed to persist: %w", droplet.ID, err)
	}

	if err := s.keyRepo.RecordUsage(params.CreatorID, params.SSHKeyID); err != nil {
		logger.Warnf("[InstanceService] Failed to record SSH key usage for creator %d: %v", params.CreatorID, err)
	}

	if params.DNSZone != "" {
		s.attachDNS(ctx, inst, params.DNSZone)
	}

	logger.Infof("[InstanceService] ✅ Droplet %s (id=%d) provisioned for creator %d, expires %s",
		inst.Name, inst.DropletID, inst.CreatorID, inst.ExpirationDate)
	s.notifier.InstanceCreated(inst)
	return inst, nil
}

// attachDNS 创建A记录并回写DNS三元组，IP未就绪或失败时仅告警
func (s *InstanceService) attachDNS(ctx context.Context, inst *model.Instance, zone string) {
	if inst.IPAddress == provider.IPUnavailable || inst.IPAddress == "" {
		logger.Warnf("[InstanceService] Skipping DNS record for %s: no public IP yet", inst.Name)
		return
	}
	recordID, err := s.provider.CreateDNSRecord(ctx, zone, inst.Name, inst.IPAddress)
	if err != nil {
		logger.Warnf("[InstanceService] Failed to create DNS record for %s in zone %s: %v", inst.Name, zone, err)
		return
	}
	domain := fmt.Sprintf("%s.%s", inst.Name, zone)
	if _, err := s.repo.AttachDNS(inst.DropletID, domain, recordID, zone); err != nil {
		logger.Errorf("[InstanceService] DNS record %d created but failed to persist binding: %v", recordID, err)
		return
	}
	inst.DomainName = &domain
	inst.DNSRecordID = &recordID
	inst.DNSZone = &zone
}

// Extend 续期指定天数，返回新到期时间；记录不存在或不属于该创建者时 found 为 false
func (s *InstanceService) Extend(id int64, days int, creatorID int64) (time.Time, bool, error) {
	inst, err := s.repo.FindByID(id)
	if err != nil {
		return time.Time{}, false, err
	}
	if inst == nil {
		return time.Time{}, false, nil
	}
	if inst.CreatorID != creatorID {
		logger.Warnf("[InstanceService] ⚠️ Creator %d attempted to extend droplet %d owned by creator %d",
			creatorID, id, inst.CreatorID)
		return time.Time{}, false, nil
	}

	newExp, found, err := s.repo.ExtendExpiration(id, days)
	if err != nil || !found {
		return newExp, found, err
	}
	if inst, err := s.repo.FindByID(id); err == nil && inst != nil {
		s.notifier.InstanceExtended(inst, newExp)
	}
	logger.Infof("[InstanceService] Droplet %d extended by %d days, new expiration %s",
		id, days, model.FormatExpiration(newExp))
	return newExp, true, nil
}

// Delete 删除云主机：先解绑DNS（容忍失败），再删云端资源，最后移除记录
// 记录不属于该创建者时按不存在处理
func (s *InstanceService) Delete(ctx context.Context, id int64, creatorID int64) (bool, error) {
	inst, err := s.repo.FindByID(id)
	if err != nil {
		return false, err
	}
	if inst == nil {
		return false, nil
	}
	if inst.CreatorID != creatorID {
		logger.Warnf("[InstanceService] ⚠️ Creator %d attempted to delete droplet %d owned by creator %d",
			creatorID, id, inst.CreatorID)
		return false, nil
	}

	if inst.HasDNS() {
		if err := s.provider.DeleteDNSRecord(ctx, *inst.DNSZone, *inst.DNSRecordID); err != nil && !provider.IsNotFound(err) {
			logger.Warnf("[InstanceService] Failed to delete DNS record %d for droplet %d: %v", *inst.DNSRecordID, id, err)
		}
	}

	if err := s.provider.DeleteDroplet(ctx, id); err != nil && !provider.IsNotFound(err) {
		return true, fmt.Errorf("failed to delete droplet %d: %w", id, err)
	}

	if _, err := s.repo.Delete(id); err != nil {
		return true, err
	}

	logger.Infof("[InstanceService] Droplet %s (id=%d) deleted by creator request", inst.Name, id)
	s.notifier.InstanceDeleted(inst)
	return true, nil
}

// List 查询指定创建者的全部云主机
func (s *InstanceService) List(creatorID int64) ([]model.Instance, error) {
	return s.repo.FindByCreator(creatorID)
}

// InstanceOptions 创建云主机时可选的密钥/镜像/规格/域名清单
type InstanceOptions struct {
	Keys    []provider.SSHKey `json:"keys"`
	Images  []provider.Image  `json:"images"`
	Sizes   []provider.Size   `json:"sizes"`
	Domains []provider.Domain `json:"domains"`
}

// ListOptions 聚合创建选项，SSH密钥按该创建者的历史使用频率排序
func (s *InstanceService) ListOptions(ctx context.Context, creatorID int64) (*InstanceOptions, error) {
	keys, err := s.provider.ListSSHKeys(ctx)
	if err != nil {
		return nil, err
	}
	images, err := s.provider.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	sizes, err := s.provider.ListSizes(ctx)
	if err != nil {
		return nil, err
	}
	domains, err := s.provider.ListDomains(ctx)
	if err != nil {
		logger.Warnf("[InstanceService] Failed to list domains: %v", err)
		domains = nil
	}

	if preferred, err := s.keyRepo.FindPreferredKeys(creatorID); err != nil {
		logger.Warnf("[InstanceService] Failed to load preferred SSH keys for creator %d: %v", creatorID, err)
	} else {
		keys = orderKeysByPreference(keys, preferred)
	}

	return &InstanceOptions{Keys: keys, Images: images, Sizes: sizes, Domains: domains}, nil
}

// orderKeysByPreference 常用密钥排前，其余保持原顺序
func orderKeysByPreference(keys []provider.SSHKey, preferred []int64) []provider.SSHKey {
	if len(preferred) == 0 {
		return keys
	}
	byID := make(map[int64]provider.SSHKey, len(keys))
	for _, k := range keys {
		byID[k.ID] = k
	}
	ordered := make([]provider.SSHKey, 0, len(keys))
	seen := make(map[int64]bool, len(preferred))
	for _, id := range preferred {
		if k, ok := byID[id]; ok {
			ordered = append(ordered, k)
			seen[id] = true
		}
	}
	for _, k := range keys {
		if !seen[k.ID] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}
