package pagination

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	ids := []snowflake.ID{10, 20, 30}
	page, info := BuildCursorPageInfo(ids, 2, func(id snowflake.ID) snowflake.ID { return id })
	assert.Equal(t, []snowflake.ID{10, 20}, page)
	require.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.AfterID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(20), after)

	page, info = BuildCursorPageInfo(ids[2:], 2, func(id snowflake.ID) snowflake.ID { return id })
	assert.Len(t, page, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestAfterIDRejectsGarbage(t *testing.T) {
	_, err := Pagination{PageToken: "%%%"}.AfterID()
	assert.Error(t, err)

	after, err := Pagination{}.AfterID()
	require.NoError(t, err)
	assert.Zero(t, after)
}
