package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSetDecodesArraysAndJoinedStrings(t *testing.T) {
	cases := map[string]StringSet{
		`["Monday","Friday","Monday"]`: {"Monday", "Friday"},
		`"Monday, Friday,,Monday "`:    {"Monday", "Friday"},
		`""`:                           {},
		`null`:                         {},
	}
	for input, want := range cases {
		var got StringSet
		require.NoError(t, json.Unmarshal([]byte(input), &got), input)
		assert.Equal(t, want, got, input)
	}

	var bad StringSet
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestStringSetEncodesAsArray(t *testing.T) {
	var empty StringSet
	data, err := json.Marshal(struct {
		Days StringSet `json:"days"`
	}{Days: empty})
	require.NoError(t, err)
	assert.JSONEq(t, `{"days":[]}`, string(data))

	assert.Equal(t, "Monday,Friday", NewStringSet("Monday", " Friday ", "Monday").Join())
	assert.True(t, ParseStringSet("Dumbbells,Bands").Contains("Bands"))
}

func TestFlexIntAcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]FlexInt{
		`34`:     34,
		`"34"`:   34,
		`34.9`:   34,
		`"34kg"`: 34,
		`"-2"`:   -2,
		`""`:     0,
		`"abc"`:  0,
		`null`:   0,
	}
	for input, want := range cases {
		var got FlexInt
		require.NoError(t, json.Unmarshal([]byte(input), &got), input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseLeadingIntRejectsOutOfRangeFloats(t *testing.T) {
	for _, input := range []string{"1e30", "-1e30", "5e9"} {
		assert.Equal(t, 0, ParseLeadingInt(input), input)
	}
	assert.Equal(t, 120, ParseLeadingInt("1.2e2"))

	var age FlexInt
	require.NoError(t, json.Unmarshal([]byte(`1e30`), &age))
	assert.Equal(t, FlexInt(0), age)
}

func TestFlexStringKeepsNumberText(t *testing.T) {
	var profile Profile
	require.NoError(t, json.Unmarshal([]byte(`{"height":172.5,"weight":"70"}`), &profile))
	assert.Equal(t, "172.5", profile.Height.String())
	assert.Equal(t, "70", profile.Weight.String())
}

func TestDefaultProfileSeedsSystemEntry(t *testing.T) {
	profile := DefaultProfile()
	require.Len(t, profile.ChatHistory, 1)
	assert.Equal(t, RoleSystem, profile.ChatHistory[0].Role)
	assert.Equal(t, "cm", profile.HeightUnit)
	assert.Equal(t, "kg", profile.WeightUnit)
	assert.Equal(t, FlexInt(45), profile.SessionDurationMinutes)
}
