package register_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/id"
)

func TestSumQuerySkipsVoidedIncrements(t *testing.T) {
	productID := id.New()
	sql, args, err := sumQuery(newRepo(nil).builder, productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT COALESCE(SUM(amount), 0)::bigint FROM reg_inventory_increments WHERE deleted_at IS NULL AND product_id = $1",
		sql)
	assert.Equal(t, []any{productID}, args)
}

func TestLockQueryOrdersRowLocks(t *testing.T) {
	r := NewSerialRepo(nil)
	productID := id.New()

	sql, args, err := r.lockQuery(productID, []string{"SN-2", "SN-1"}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT "+strings.Join(serialCols, ", ")+" FROM reg_serial_numbers"))
	assert.True(t, strings.HasSuffix(sql,
		"WHERE product_id = $1 AND serial_number IN ($2,$3) ORDER BY serial_number FOR UPDATE"), sql)
	assert.Equal(t, []any{productID, "SN-2", "SN-1"}, args)
}

func TestTransferColumnsIncludeBothLegs(t *testing.T) {
	for _, col := range []string{"from_location_id", "from_increment_id", "to_location_id", "to_increment_id", "deleted_at"} {
		assert.Contains(t, transferCols, col)
	}
	assert.Equal(t, "id", incrementCols[0])
	assert.Equal(t, "deleted_at", incrementCols[len(incrementCols)-1])
}
