package data

import (
	"fmt"
	"io"
	"testing"

	"credit-service/internal/data/model"

	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// newTestData 为每个测试打开独立的内存数据库
func newTestData(t *testing.T) *Data {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Subscription{}, &model.CreditUsage{}))
	return &Data{db: db}
}

func createSubscription(t *testing.T, data *Data, id string, credits int64) {
	t.Helper()
	c := credits
	require.NoError(t, data.db.Create(&model.Subscription{
		SubscriptionID:   id,
		PartnerID:        "partner-1",
		Status:           model.SubscriptionStatusActive,
		RemainingCredits: &c,
	}).Error)
}
