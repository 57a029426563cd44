package service

import (
	"context"
	"fmt"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/douyin"
	"github.com/A2Data/auto-douyin/internal/platform/session"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	"gorm.io/gorm"
)

// AccountService 账号登记与登录态维护，账号按名称唯一
type AccountService struct {
	db    *gorm.DB
	store session.Store
	pool  *browser.Pool

	// uploaderFor 上传器工厂，测试时替换成假实现
	uploaderFor func(account, cookiePath string) types.Uploader
}

// NewAccountService 创建账号服务
func NewAccountService(db *gorm.DB, store session.Store, pool *browser.Pool) *AccountService {
	s := &AccountService{db: db, store: store, pool: pool}
	s.uploaderFor = func(account, cookiePath string) types.Uploader {
		return douyin.NewUploaderWithPool(account, cookiePath, pool)
	}
	return s
}

// GetAccounts 列出全部账号
func (s *AccountService) GetAccounts(ctx context.Context) ([]database.Account, error) {
	var accounts []database.Account
	if err := s.db.WithContext(ctx).Order("name").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("查询账号列表失败: %w", err)
	}
	return accounts, nil
}

// GetAccount 按名称查找账号
func (s *AccountService) GetAccount(ctx context.Context, name string) (*database.Account, error) {
	var account database.Account
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&account).Error
	if err != nil {
		return nil, fmt.Errorf("账号 %s 不存在: %w", name, err)
	}
	return &account, nil
}

// AddAccount 登记账号，凭证路径由凭证存储决定
func (s *AccountService) AddAccount(ctx context.Context, name string) (*database.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("账号名不能为空")
	}

	account := &database.Account{
		Platform:   config.PlatformDouyin,
		Name:       name,
		Status:     config.AccountStatusInvalid,
		CookiePath: s.store.Path(name),
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, fmt.Errorf("创建账号失败: %w", err)
	}
	utils.Info(fmt.Sprintf("账号已登记: %s", name))
	return account, nil
}

// EnsureAccount 返回指定账号，不存在时自动登记
func (s *AccountService) EnsureAccount(ctx context.Context, name string) (*database.Account, error) {
	account, err := s.GetAccount(ctx, name)
	if err == nil {
		return account, nil
	}
	return s.AddAccount(ctx, name)
}

// DeleteAccount 删除账号及其凭证文件
func (s *AccountService) DeleteAccount(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&database.Account{})
	if result.Error != nil {
		return fmt.Errorf("删除账号失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("账号 %s 不存在", name)
	}
	if err := s.store.Delete(name); err != nil {
		utils.Warn(fmt.Sprintf("删除凭证文件失败: %v", err))
	}
	return nil
}

// LoginAccount 发起人工扫码登录，成功后账号标记为有效
func (s *AccountService) LoginAccount(ctx context.Context, name string) error {
	account, err := s.EnsureAccount(ctx, name)
	if err != nil {
		return err
	}

	uploader := s.uploaderFor(name, account.CookiePath)
	if err := uploader.Login(); err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}

	return s.markStatus(ctx, name, config.AccountStatusValid)
}

// ReloginAccount 丢弃旧凭证后重新登录
func (s *AccountService) ReloginAccount(ctx context.Context, name string) error {
	if _, err := s.GetAccount(ctx, name); err != nil {
		return err
	}
	if err := s.store.Delete(name); err != nil {
		return fmt.Errorf("清除旧凭证失败: %w", err)
	}
	return s.LoginAccount(ctx, name)
}

// ValidateAccount 轻量校验账号登录态并同步数据库状态
func (s *AccountService) ValidateAccount(ctx context.Context, name string) (bool, error) {
	account, err := s.GetAccount(ctx, name)
	if err != nil {
		return false, err
	}

	uploader := s.uploaderFor(name, account.CookiePath)
	valid, err := uploader.ValidateCookie(ctx)
	if err != nil {
		return false, err
	}

	status := config.AccountStatusInvalid
	if valid {
		status = config.AccountStatusValid
	}
	if err := s.markStatus(ctx, name, status); err != nil {
		utils.Warn(fmt.Sprintf("同步账号状态失败: %v", err))
	}
	return valid, nil
}

// markStatus 更新账号状态字段
func (s *AccountService) markStatus(ctx context.Context, name string, status int) error {
	return s.db.WithContext(ctx).
		Model(&database.Account{}).
		Where("name = ?", name).
		Update("status", status).Error
}
