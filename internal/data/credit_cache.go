package data

import (
	"context"
	"fmt"
	"strconv"

	"credit-service/internal/biz"
	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

// checkAndDecrementScript 原子"检查并扣减"脚本
// 读取余额，仅当 balance >= amount 时扣减并返回扣减后余额；
// key 缺失或余额不足时不做任何修改，返回 -1 哨兵值。
// 检查与扣减在单次往返内完成，并发调用方不可能同时成功消费同一份余额
const checkAndDecrementScript = `
local balance = redis.call('GET', KEYS[1])
if not balance then
    return -1
end
balance = tonumber(balance)
local amount = tonumber(ARGV[1])
if balance < amount then
    return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`

// creditCacheRepo 余额缓存数据访问
type creditCacheRepo struct {
	data *Data
	conf *biz.CreditConfig
	log  *log.Helper
}

// NewCreditCacheRepo 创建余额缓存 repo（返回 biz.CreditCacheRepo 接口）
func NewCreditCacheRepo(data *Data, conf *biz.CreditConfig, logger log.Logger) biz.CreditCacheRepo {
	return &creditCacheRepo{
		data: data,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

func (r *creditCacheRepo) balanceKey(subscriptionID string) string {
	return r.conf.KeyPrefix + subscriptionID
}

// GetCredits 获取缓存余额，key 缺失时返回哨兵值
func (r *creditCacheRepo) GetCredits(ctx context.Context, subscriptionID string) (int64, error) {
	val, err := r.data.rdb.Get(ctx, r.balanceKey(subscriptionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return constants.CreditNotFound, nil
		}
		return constants.CreditNotFound, fmt.Errorf("get credit balance failed: %w", err)
	}
	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return constants.CreditNotFound, fmt.Errorf("malformed credit balance %q: %w", val, err)
	}
	return balance, nil
}

// SetCredits 无条件设置余额
// 余额缓存可能领先于事实源（扣减尚未落库），绝不能过期，TTL 为 0
func (r *creditCacheRepo) SetCredits(ctx context.Context, subscriptionID string, credits int64) error {
	if err := r.data.rdb.Set(ctx, r.balanceKey(subscriptionID), credits, 0).Err(); err != nil {
		return fmt.Errorf("set credit balance failed: %w", err)
	}
	return nil
}

// SetCreditsIfAbsent 仅当 key 不存在时写入（预热用，不覆盖已分歧的余额）
func (r *creditCacheRepo) SetCreditsIfAbsent(ctx context.Context, subscriptionID string, credits int64) (bool, error) {
	set, err := r.data.rdb.SetNX(ctx, r.balanceKey(subscriptionID), credits, 0).Result()
	if err != nil {
		return false, fmt.Errorf("setnx credit balance failed: %w", err)
	}
	return set, nil
}

// IncrCredits 无条件增加余额（回滚补偿路径）
func (r *creditCacheRepo) IncrCredits(ctx context.Context, subscriptionID string, amount int64) (int64, error) {
	balance, err := r.data.rdb.IncrBy(ctx, r.balanceKey(subscriptionID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("incr credit balance failed: %w", err)
	}
	return balance, nil
}

// CheckAndDecrement 执行原子扣减脚本
func (r *creditCacheRepo) CheckAndDecrement(ctx context.Context, subscriptionID string, amount int64) (int64, error) {
	res, err := r.data.rdb.Eval(ctx, checkAndDecrementScript, []string{r.balanceKey(subscriptionID)}, amount).Int64()
	if err != nil {
		return constants.CreditNotFound, fmt.Errorf("check-and-decrement script failed: %w", err)
	}
	return res, nil
}
