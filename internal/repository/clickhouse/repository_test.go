package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/repository"
)

func TestWhereClause(t *testing.T) {
	where, args := whereClause(repository.MetricsQuery{From: 1, To: 2})
	assert.Equal(t, "WHERE timestamp >= ? AND timestamp <= ?", where)
	assert.Equal(t, []any{int64(1), int64(2)}, args)

	where, args = whereClause(repository.MetricsQuery{From: 1, To: 2, DetectionMethod: "blur"})
	assert.Equal(t, "WHERE timestamp >= ? AND timestamp <= ? AND detection_method = ?", where)
	assert.Equal(t, []any{int64(1), int64(2), "blur"}, args)
}

func TestGroupExpressions(t *testing.T) {
	for _, groupBy := range []string{
		repository.GroupByDetectionMethod,
		repository.GroupByClickArea,
		repository.GroupByHour,
		repository.GroupByDay,
	} {
		t.Run(groupBy, func(t *testing.T) {
			selectField, groupByClause, orderBy, err := groupExpressions(groupBy)
			require.NoError(t, err)
			assert.NotEmpty(t, selectField)
			assert.Contains(t, groupByClause, "GROUP BY")
			assert.Contains(t, orderBy, "ORDER BY")
		})
	}

	_, _, _, err := groupExpressions("channel")
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := &config.ClickHouse{
		Host:            "clickhouse",
		Port:            "9440",
		Database:        "adclicks",
		User:            "writer",
		Password:        "secret",
		UseTLS:          true,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 60,
	}

	opts := options(cfg)

	assert.Equal(t, []string{"clickhouse:9440"}, opts.Addr)
	assert.Equal(t, "adclicks", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	assert.NotNil(t, opts.TLS)
	assert.Equal(t, time.Minute, opts.ConnMaxLifetime)

	cfg.UseTLS = false
	assert.Nil(t, options(cfg).TLS)
}
