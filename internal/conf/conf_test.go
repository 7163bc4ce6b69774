package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_AsDuration(t *testing.T) {
	d, err := Duration("1m30s").AsDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	// 空值表示未配置
	d, err = Duration("").AsDuration()
	require.NoError(t, err)
	assert.Zero(t, d)

	// 写错的时长是配置错误，不能静默归零
	_, err = Duration("30x").AsDuration()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "30x")
}
