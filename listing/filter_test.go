package listing

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlot/models"
)

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return values
}

func TestParseFilter_Defaults(t *testing.T) {
	f, err := ParseFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, []OrderField{{Column: "created_at", Desc: true}}, f.Ordering)
	assert.Empty(t, f.References)
}

func TestParseFilter_Values(t *testing.T) {
	brand := uuid.New()
	f, err := ParseFilter(mustQuery(t, "brand="+brand.String()+
		"&year=2018&price_min=1000.5&price_max=2000&year_min=2010&year_max=2020&mileage_max=90000"+
		"&status=approved&is_active=false&search=+Camry+&body_type=&page=2&page_size=500"))
	require.NoError(t, err)

	assert.Equal(t, map[string]uuid.UUID{"brand_id": brand}, f.References)
	assert.Equal(t, 2018, *f.Year)
	assert.Equal(t, 1000.5, *f.PriceMin)
	assert.Equal(t, 2000.0, *f.PriceMax)
	assert.Equal(t, 2010, *f.YearMin)
	assert.Equal(t, 2020, *f.YearMax)
	assert.Equal(t, 90000, *f.MileageMax)
	assert.Equal(t, models.StatusApproved, *f.Status)
	assert.False(t, *f.IsActive)
	assert.Equal(t, "Camry", f.Search)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 100, f.Offset())
}

func TestParseFilter_Errors(t *testing.T) {
	_, err := ParseFilter(mustQuery(t, "brand=abc&year=new&price_min=cheap&status=sold&is_active=maybe"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`"abc" is not a valid UUID.`}, verr.Fields["brand"])
	assert.Equal(t, []string{"Enter a whole number."}, verr.Fields["year"])
	assert.Equal(t, []string{"Enter a number."}, verr.Fields["price_min"])
	assert.True(t, verr.Fields.Has("status"))
	assert.True(t, verr.Fields.Has("is_active"))

	_, err = ParseFilter(mustQuery(t, "page=0"))
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = ParseFilter(mustQuery(t, "page=last"))
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		raw      string
		expected []OrderField
	}{
		{"price", []OrderField{{Column: "price"}}},
		{"-year, mileage", []OrderField{{Column: "year", Desc: true}, {Column: "mileage"}}},
		{"title,-price", []OrderField{{Column: "price", Desc: true}}},
		{"title", []OrderField{{Column: "created_at", Desc: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOrdering(tt.raw))
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
