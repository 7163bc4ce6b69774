package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// Credit Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Credit 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块（复用 go-pkg 通用错误码）
//   01: 余额缓存模块
//   02: 待落库队列模块
//   03: 批量同步模块
//   04: 恢复模块
//   05-99: 预留扩展

// 余额缓存模块错误码 (210100-210199)
const (
	// ErrCodeCreditCacheUnavailable 余额缓存不可用
	ErrCodeCreditCacheUnavailable = 210101
	// ErrCodeCreditNotInitialized 余额缓存未初始化
	ErrCodeCreditNotInitialized = 210102
	// ErrCodeCreditInitFailed 余额缓存初始化失败
	ErrCodeCreditInitFailed = 210103
	// ErrCodeCreditRollbackFailed 余额回滚失败
	ErrCodeCreditRollbackFailed = 210104
)

// 待落库队列模块错误码 (210200-210299)
const (
	// ErrCodePendingSaveFailed 待落库记录写入失败
	ErrCodePendingSaveFailed = 210201
	// ErrCodePendingFetchFailed 待落库记录拉取失败
	ErrCodePendingFetchFailed = 210202
	// ErrCodePendingRemoveFailed 待落库记录删除失败
	ErrCodePendingRemoveFailed = 210203
)

// 批量同步模块错误码 (210300-210399)
const (
	// ErrCodeSyncFlushFailed 批量落库失败
	ErrCodeSyncFlushFailed = 210301
	// ErrCodeSyncRetryExhausted 同步重试次数耗尽
	ErrCodeSyncRetryExhausted = 210302
	// ErrCodeSyncLockFailed 获取同步锁失败
	ErrCodeSyncLockFailed = 210303
)

// 恢复模块错误码 (210400-210499)
const (
	// ErrCodeSeedFailed 缓存预热失败
	ErrCodeSeedFailed = 210401
	// ErrCodeRefreshFailed 缓存刷新失败
	ErrCodeRefreshFailed = 210402
	// ErrCodeSubscriptionNotFound 订阅不存在
	ErrCodeSubscriptionNotFound = 210403
)

// 通用数据访问错误码 (210700-210799)
const (
	// ErrCodeSubscriptionGetFailed 获取订阅失败
	ErrCodeSubscriptionGetFailed = 210701
	// ErrCodeSubscriptionUpdateFailed 更新订阅余额失败
	ErrCodeSubscriptionUpdateFailed = 210702
	// ErrCodeCreditUsageCreateFailed 创建用量流水失败
	ErrCodeCreditUsageCreateFailed = 210703
	// ErrCodeInvalidSubscriptionID 无效的订阅ID
	ErrCodeInvalidSubscriptionID = 210704
	// ErrCodeInvalidStatsPeriod 无效的统计周期
	ErrCodeInvalidStatsPeriod = 210705
)
