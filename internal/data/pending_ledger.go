package data

import (
	"context"
	"encoding/json"
	"fmt"

	"credit-service/internal/biz"
	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// pendingLedgerRepo 待落库队列数据访问
// 记录本体以 JSON 存在独立 key 下，id 索引维护在一个集合里；
// 记录与索引必须保持同步，写入顺序固定为"先记录后索引"，
// 删除顺序固定为"先索引后记录"——任何一侧崩溃都只会留下无索引的记录
// （永远不会被批量拉取到），而不会留下指向空记录的索引项
type pendingLedgerRepo struct {
	data *Data
	conf *biz.CreditConfig
	log  *log.Helper
}

// NewPendingLedgerRepo 创建待落库队列 repo（返回 biz.PendingLedgerRepo 接口）
func NewPendingLedgerRepo(data *Data, conf *biz.CreditConfig, logger log.Logger) biz.PendingLedgerRepo {
	return &pendingLedgerRepo{
		data: data,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

func (r *pendingLedgerRepo) recordKey(trackingID string) string {
	return r.conf.PendingKeyPrefix + trackingID
}

func (r *pendingLedgerRepo) indexKey() string {
	return r.conf.PendingKeyPrefix + constants.RedisKeyPendingIndexSuffix
}

// SavePending 写入记录并登记索引
// 记录在落库前必须一直存在，不设置 TTL
func (r *pendingLedgerRepo) SavePending(ctx context.Context, record *biz.PendingCreditUsage) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal pending record failed: %w", err)
	}

	// 先记录后索引
	if err := r.data.rdb.Set(ctx, r.recordKey(record.TrackingID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save pending record failed: %w", err)
	}
	if err := r.data.rdb.SAdd(ctx, r.indexKey(), record.TrackingID).Err(); err != nil {
		return fmt.Errorf("index pending record failed: %w", err)
	}
	return nil
}

// GetPendingBatch 从索引取最多 limit 条记录
// 记录缺失或反序列化失败时跳过并记日志，索引项保留到下一次拉取
func (r *pendingLedgerRepo) GetPendingBatch(ctx context.Context, limit int) ([]*biz.PendingCreditUsage, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := r.data.rdb.SRandMemberN(ctx, r.indexKey(), int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch pending ids failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.recordKey(id))
	}
	vals, err := r.data.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch pending records failed: %w", err)
	}

	records := make([]*biz.PendingCreditUsage, 0, len(vals))
	for i, val := range vals {
		if val == nil {
			r.log.Warnf("pending index entry without record, skipping: tracking_id=%s", ids[i])
			continue
		}
		payload, ok := val.(string)
		if !ok {
			r.log.Warnf("pending record has unexpected type %T, skipping: tracking_id=%s", val, ids[i])
			continue
		}
		var record biz.PendingCreditUsage
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			r.log.Warnf("malformed pending record, skipping: tracking_id=%s, error=%v", ids[i], err)
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// RemovePendingBatch 删除已落库的记录
// 仅在对应流水持久化之后调用；先摘索引再删记录
func (r *pendingLedgerRepo) RemovePendingBatch(ctx context.Context, trackingIDs []string) error {
	if len(trackingIDs) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(trackingIDs))
	keys := make([]string, 0, len(trackingIDs))
	for _, id := range trackingIDs {
		members = append(members, id)
		keys = append(keys, r.recordKey(id))
	}

	if err := r.data.rdb.SRem(ctx, r.indexKey(), members...).Err(); err != nil {
		return fmt.Errorf("remove pending index entries failed: %w", err)
	}
	if err := r.data.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete pending records failed: %w", err)
	}
	return nil
}

// GetPendingCount 索引基数
func (r *pendingLedgerRepo) GetPendingCount(ctx context.Context) (int64, error) {
	count, err := r.data.rdb.SCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("pending count failed: %w", err)
	}
	return count, nil
}
