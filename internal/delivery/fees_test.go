package delivery

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeTable_Fee(t *testing.T) {
	table := DefaultFeeTable()

	tests := []struct {
		name string
		info Info
		want int64
	}{
		{
			name: "home delivery to Dakar",
			info: Info{Method: MethodHomeDelivery, City: "Dakar", PostalCode: "10000"},
			want: 500,
		},
		{
			name: "home delivery to Thiès",
			info: Info{Method: MethodHomeDelivery, City: "Thiès"},
			want: 1000,
		},
		{
			name: "home delivery to Kaolack",
			info: Info{Method: MethodHomeDelivery, City: "Kaolack"},
			want: 1500,
		},
		{
			name: "unknown city falls back to default",
			info: Info{Method: MethodHomeDelivery, City: "Atlantis"},
			want: 2000,
		},
		{
			name: "city name is trimmed",
			info: Info{Method: MethodHomeDelivery, City: "  Dakar "},
			want: 500,
		},
		{
			name: "city match is case-insensitive",
			info: Info{Method: MethodHomeDelivery, City: "dakar"},
			want: 500,
		},
		{
			name: "pickup point is free",
			info: Info{Method: MethodPickupPoint, Location: "Marché Kermel - Dakar"},
			want: 0,
		},
		{
			name: "farm pickup is free",
			info: Info{Method: MethodFarmPickup, Location: "Ferme de Sangalkam"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Fee(tt.info)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)),
				"fee = %s, want %d", got, tt.want)
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("home-delivery")
	require.NoError(t, err)
	assert.Equal(t, MethodHomeDelivery, m)

	m, err = ParseMethod(" Farm-Pickup ")
	require.NoError(t, err)
	assert.Equal(t, MethodFarmPickup, m)

	_, err = ParseMethod("teleport")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestLocationLists(t *testing.T) {
	assert.True(t, ValidRegion("Dakar"))
	assert.False(t, ValidRegion("Paris"))
	assert.True(t, ValidPickupPoint("Marché Kermel - Dakar"))
	assert.False(t, ValidPickupPoint("Marché Inconnu"))
	assert.True(t, ValidFarmLocation("Ferme de Sangalkam"))
	assert.False(t, ValidFarmLocation("Ferme Fantôme"))
}
