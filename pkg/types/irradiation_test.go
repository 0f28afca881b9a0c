package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIrradiationSource(t *testing.T) {
	s, err := ParseIrradiationSource("")
	require.NoError(t, err)
	assert.Equal(t, IrradiationSourceAuto, s)

	s, err = ParseIrradiationSource("nasa-power")
	require.NoError(t, err)
	assert.Equal(t, IrradiationSourceNASA, s)

	_, err = ParseIrradiationSource("meteonorm")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestLocation(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, Location{Latitude: -23.55, Longitude: -46.63}.Validate())
		assert.NoError(t, Location{Latitude: 90, Longitude: -180}.Validate())

		err := Location{Latitude: 91}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "latitude")

		err = Location{Longitude: 180.5}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "longitude")

		assert.Error(t, Location{Latitude: math.NaN()}.Validate())
	})

	t.Run("in brazil", func(t *testing.T) {
		assert.True(t, Location{Latitude: -23.55, Longitude: -46.63}.InBrazil())
		assert.True(t, Location{Latitude: -3.12, Longitude: -60.02}.InBrazil())
		assert.False(t, Location{Latitude: 38.72, Longitude: -9.14}.InBrazil())
		assert.False(t, Location{Latitude: -34.60, Longitude: -58.38}.InBrazil())
	})
}

func TestNewIrradiationProfile(t *testing.T) {
	loc := Location{Latitude: -19.92, Longitude: -43.94}
	monthly := [12]float64{6, 6, 5.5, 5, 4.5, 4.2, 4.4, 5, 5.3, 5.6, 5.7, 5.8}

	p, err := NewIrradiationProfile(IrradiationSourcePVGIS, loc, monthly, 0.9)
	require.NoError(t, err)
	assert.Equal(t, IrradiationSourcePVGIS, p.Source)
	assert.InDelta(t, 63.0/12, p.AnnualIrradiation, 1e-9)
	assert.False(t, p.RetrievedAt.IsZero())
	assert.False(t, p.IsZero())

	bad := monthly
	bad[4] = -1
	_, err = NewIrradiationProfile(IrradiationSourcePVGIS, loc, bad, 0.9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month 5")

	_, err = NewIrradiationProfile(IrradiationSourcePVGIS, loc, monthly, 1.5)
	assert.Error(t, err)

	assert.True(t, IrradiationProfile{}.IsZero())
}

func TestLossesBreakdown(t *testing.T) {
	assert.Equal(t, 14.0, DefaultLossesBreakdown().Total())
	assert.NoError(t, DefaultLossesBreakdown().Validate())

	l := DefaultLossesBreakdown()
	l.Soiling = 120
	err := l.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "losses.soiling")

	l = DefaultLossesBreakdown()
	l.Wiring = math.NaN()
	var ve *ValidationError
	require.ErrorAs(t, l.Validate(), &ve)
	assert.Equal(t, "losses.wiring", ve.Field)
}

func TestOwnerVisibleTo(t *testing.T) {
	assert.True(t, Owner{Scope: OwnershipSystem}.VisibleTo("", ""))
	assert.True(t, Owner{Scope: OwnershipTeam, ID: "t1"}.VisibleTo("t1", "u9"))
	assert.False(t, Owner{Scope: OwnershipTeam, ID: "t1"}.VisibleTo("t2", "u9"))
	assert.True(t, Owner{Scope: OwnershipUser, ID: "u1"}.VisibleTo("t2", "u1"))
	assert.False(t, Owner{Scope: OwnershipUser}.VisibleTo("", ""))
	assert.False(t, Owner{Scope: "unknown", ID: "x"}.VisibleTo("x", "x"))
}

func TestUserMemberOf(t *testing.T) {
	u := User{ID: "u1", TeamIDs: []string{"a", "b"}}
	assert.True(t, u.MemberOf("b"))
	assert.False(t, u.MemberOf("c"))
}
