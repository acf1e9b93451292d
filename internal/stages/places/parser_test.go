package places

import (
	"encoding/json"
	"testing"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/stretchr/testify/require"
)

func TestParse_TwoWellFormedOneNameless(t *testing.T) {
	t.Parallel()

	text := `Restaurant Name: Cafe A
Cuisine Type: Turkish
Location: 40.99, 29.02
Proximity: 500m
Rating: 4.5
Brief Description: Cozy spot.

Cuisine Type: Italian
Location: 41.00, 29.03
Proximity: 1km
Rating: 4.0
Brief Description: Has no name line.

Restaurant Name: Meyhane B
Cuisine Type: Meze
Location: 40.98, 29.01
Proximity: 800m
Rating: 4.7
Brief Description: Lively tavern.`

	got := Parse(text)
	require.Len(t, got, 2)

	require.Equal(t, models.PlaceSuggestion{
		Name:         "Cafe A",
		CuisineType:  "Turkish",
		Coordinates:  &models.Coordinates{Lat: 40.99, Lng: 29.02},
		LocationText: "40.99, 29.02",
		Proximity:    "500m",
		Rating:       "4.5",
		Description:  "Cozy spot.",
	}, got[0])
	require.Equal(t, "Meyhane B", got[1].Name)
}

func TestParse_MarkdownAndNumbering(t *testing.T) {
	t.Parallel()

	text := "Here are my picks:\n\n" +
		"1. **Restaurant Name:** Çiya Sofrası\n" +
		"- **Cuisine Type:** Anatolian\n" +
		"* Location: (40.9905, 29.0250)\n" +
		"• Rating: 4.6/5\r\n" +
		"\r\n" +
		"2) Restaurant Name: Kadı Nimet\n" +
		"Brief Description: Fish: fresh daily."

	got := Parse(text)
	require.Len(t, got, 2)

	require.Equal(t, "Çiya Sofrası", got[0].Name)
	require.Equal(t, "Anatolian", got[0].CuisineType)
	require.Equal(t, &models.Coordinates{Lat: 40.9905, Lng: 29.0250}, got[0].Coordinates)
	require.Equal(t, "4.6/5", got[0].Rating)

	require.Equal(t, "Kadı Nimet", got[1].Name)
	// Значение делится только по первому ':'.
	require.Equal(t, "Fish: fresh daily.", got[1].Description)
}

func TestParse_MalformedAndPartialBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "prose only", text: "Sorry, I cannot help with that.", want: 0},
		{name: "empty name value", text: "Restaurant Name:\nCuisine Type: Thai", want: 0},
		{name: "name only", text: "Restaurant Name: Solo", want: 1},
		{name: "lines without colon", text: "Restaurant Name: A\njust a note\n\nnot a block", want: 1},
		{name: "unknown keys ignored", text: "Restaurant Name: A\nOpening Hours: 9-5", want: 1},
		{name: "whitespace-only separators", text: "Restaurant Name: A\n   \nRestaurant Name: B", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Len(t, Parse(tt.text), tt.want)
		})
	}
}

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *models.Coordinates
	}{
		{"40.99, 29.02", &models.Coordinates{Lat: 40.99, Lng: 29.02}},
		{"(41.0082, 28.9784)", &models.Coordinates{Lat: 41.0082, Lng: 28.9784}},
		{"-33.86,151.20", &models.Coordinates{Lat: -33.86, Lng: 151.20}},
		{"Moda Caddesi 12", nil},
		{"91, 10", nil},
		{"10, 181", nil},
		{"abc, def", nil},
		{"", nil},
		{"NaN, NaN", nil},
		{"nan, 10", nil},
		{"Inf, 10", nil},
		{"10, -Inf", nil},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, parseCoordinates(tt.in), tt.in)
	}
}

func TestParse_NonFiniteCoordinatesStayEncodable(t *testing.T) {
	t.Parallel()

	got := Parse("Restaurant Name: Cafe A\nLocation: NaN, NaN\n")
	require.Len(t, got, 1)
	require.Nil(t, got[0].Coordinates)
	require.Equal(t, "NaN, NaN", got[0].LocationText)

	_, err := json.Marshal(got)
	require.NoError(t, err)
}

func TestParse_KeepsRawLocationWhenUnparseable(t *testing.T) {
	t.Parallel()

	got := Parse("Restaurant Name: A\nLocation: near the ferry pier")
	require.Len(t, got, 1)
	require.Nil(t, got[0].Coordinates)
	require.Equal(t, "near the ferry pier", got[0].LocationText)
}
