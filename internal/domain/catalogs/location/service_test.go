package location_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/tx/txtest"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/location/locationtest"
)

func newService() (*location.Service, *locationtest.Store) {
	store := locationtest.New()
	return location.NewService(store, txtest.New(store), audit.Nop{}), store
}

func TestEnsureSystemLocations_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()

	require.NoError(t, svc.EnsureSystemLocations(ctx))
	require.Len(t, store.Rows, len(location.SystemLocations)+1)

	require.NoError(t, svc.EnsureSystemLocations(ctx))
	assert.Len(t, store.Rows, len(location.SystemLocations)+1)

	for _, sys := range location.SystemLocations {
		loc, err := svc.GetSystem(ctx, sys.Key)
		require.NoError(t, err, sys.Key)
		assert.Equal(t, sys.Name, loc.Name)
		assert.True(t, loc.SystemUseOnly)
		assert.False(t, loc.CanBeRemoved)
	}

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, location.DefaultLocationName, def.Name)
	assert.False(t, def.SystemUseOnly)
	assert.False(t, def.CanBeRemoved)
}

func TestGetSystem_MissingIsConfigurationError(t *testing.T) {
	svc, _ := newService()

	_, err := svc.GetSystem(context.Background(), location.KeySold)
	assert.True(t, apperror.IsConfiguration(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeSystemLocationMissing))
}

func TestListSelectable_HidesSystemAndDeleted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	require.NoError(t, svc.EnsureSystemLocations(ctx))

	shelf := location.NewLocation("Back Shelf")
	require.NoError(t, svc.Create(ctx, shelf))
	van := location.NewLocation("Service Van")
	require.NoError(t, svc.Create(ctx, van))
	require.NoError(t, svc.Delete(ctx, van.ID))

	locs, err := svc.ListSelectable(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(locs))
	for _, l := range locs {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"Back Shelf", "Stock"}, names)
}

func TestCreate_CannotForgeSystemLocation(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()

	forged := location.NewSystemLocation(location.KeySold, "Sold")
	require.NoError(t, svc.Create(ctx, forged))

	saved := store.Rows[forged.ID]
	assert.False(t, saved.SystemUseOnly)
	assert.Nil(t, saved.SystemKey)
}

func TestDelete_PermanentLocations(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	require.NoError(t, svc.EnsureSystemLocations(ctx))

	err := svc.Delete(ctx, store.MustSystem(location.KeyInTransit).ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotRemovable))

	err = svc.Delete(ctx, store.MustDefault().ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotRemovable))
}

func TestSetDefault(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	require.NoError(t, svc.EnsureSystemLocations(ctx))
	oldDefault := store.MustDefault()

	front := location.NewLocation("Front Counter")
	require.NoError(t, svc.Create(ctx, front))
	require.NoError(t, svc.SetDefault(ctx, front.ID))

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, front.ID, def.ID)
	assert.False(t, store.Rows[oldDefault.ID].DefaultLocation)

	err = svc.SetDefault(ctx, store.MustSystem(location.KeySold).ID)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
