package listing

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlot/models"
	"carlot/validation"
)

func TestInput_UnmarshalJSON(t *testing.T) {
	id := uuid.New()
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "Camry",
		"price": "12345.50",
		"latitude": 43.25,
		"year": "twenty",
		"body_type": "",
		"drive_type": null,
		"brand": "`+id.String()+`",
		"created_at": "2020-01-01T00:00:00Z"
	}`), &in))

	assert.Equal(t, Some("Camry"), in.Title)
	assert.Equal(t, Some(Decimal(12345.5)), in.Price)
	assert.Equal(t, Some(Decimal(43.25)), in.Latitude)
	assert.True(t, in.Year.Invalid)
	assert.Equal(t, Null[uuid.UUID](), in.BodyType)
	assert.Equal(t, Null[uuid.UUID](), in.DriveType)
	assert.Equal(t, Some(id), in.Brand)
	assert.False(t, in.Model.Set)
}

func TestInput_Apply(t *testing.T) {
	body := uuid.New()
	l := models.Listing{
		Title:      "Old",
		Price:      100,
		Mileage:    10,
		BodyTypeID: &body,
		Status:     models.StatusPending,
	}
	in := Input{
		Title:    Some("New"),
		Price:    Some(Decimal(250.75)),
		Mileage:  Null[int](),
		BodyType: Null[uuid.UUID](),
		EngineCC: Some(1998),
		Status:   Some(models.StatusApproved),
	}
	errs := validation.Errors{}
	in.apply(&l, false, errs)

	assert.Equal(t, validation.Errors{"mileage": {validation.MsgNull}}, errs)
	assert.Equal(t, "New", l.Title)
	assert.Equal(t, 250.75, l.Price)
	assert.Equal(t, 10, l.Mileage)
	assert.Nil(t, l.BodyTypeID)
	require.NotNil(t, l.EngineCC)
	assert.Equal(t, 1998, *l.EngineCC)
	assert.Equal(t, models.StatusApproved, l.Status)
}

func TestInput_ApplyInvalidDecimal(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"price": "12,000", "longitude": "east"}`), &in))

	l := models.Listing{Price: 1}
	errs := validation.Errors{}
	in.apply(&l, false, errs)
	assert.Equal(t, []string{"A valid number is required."}, errs["price"])
	assert.Equal(t, []string{"A valid number is required."}, errs["longitude"])
	assert.Equal(t, 1.0, l.Price)
	assert.Nil(t, l.Longitude)
}
