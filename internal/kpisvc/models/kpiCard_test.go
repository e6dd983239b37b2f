package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard_ToCardDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	card, err := NewCard{Name: "Scrap Rate"}.ToCard(now)
	require.NoError(t, err)

	assert.Equal(t, "Scrap Rate", card.Name)
	assert.Equal(t, 0.0, card.MinValue)
	assert.Equal(t, 100.0, card.MaxValue)
	assert.Equal(t, 0.0, card.Benchmark)
	assert.Nil(t, card.Achieved)
	assert.Equal(t, now, card.Date)
	assert.Equal(t, 0, card.Order)
	assert.False(t, card.IsDefault)
	assert.True(t, card.IsVisible)
}

func TestNewCard_ToCardFromJSON(t *testing.T) {
	var in NewCard
	body := `{"name":"Coils/HR","minValue":10,"maxValue":90,"benchmark":80,"achieved":75,"date":"2024-05-01","order":2,"isDefault":true}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	card, err := in.ToCard(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 10.0, card.MinValue)
	assert.Equal(t, 90.0, card.MaxValue)
	assert.Equal(t, 80.0, card.Benchmark)
	require.NotNil(t, card.Achieved)
	assert.Equal(t, 75.0, *card.Achieved)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), card.Date)
	assert.Equal(t, 2, card.Order)
	assert.True(t, card.IsDefault)
}

func TestNewCard_ToCardBadDate(t *testing.T) {
	bad := "yesterday"
	_, err := NewCard{Name: "x", Date: &bad}.ToCard(time.Now())
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPairSides(t *testing.T) {
	tests := []struct {
		name  string
		coils bool
		tons  bool
	}{
		{"Coils/HR", true, false},
		{"coils/hr line 2", true, false},
		{"Tons/HR", false, true},
		{"Coils Shipped/HR", false, false},
		{"Scrap Rate", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &KpiCard{Name: tt.name}
			assert.Equal(t, tt.coils, c.IsCoils())
			assert.Equal(t, tt.tons, c.IsTons())
		})
	}
}
