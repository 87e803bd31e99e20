package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectiveStatus_UnmarshalAcceptsBothSpellings(t *testing.T) {
	var v ProgressVector
	err := json.Unmarshal([]byte(`["achieved","in-progress","not_achieved","IN_PROGRESS","not-achieved"]`), &v)
	require.NoError(t, err)

	assert.Equal(t, ProgressVector{Achieved, InProgress, NotAchieved, InProgress, NotAchieved}, v)
}

func TestObjectiveStatus_UnmarshalRejectsUnknown(t *testing.T) {
	var v ProgressVector
	assert.Error(t, json.Unmarshal([]byte(`["done"]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[true]`), &v))
}

func TestObjectiveStatus_MarshalNormalizesZeroValue(t *testing.T) {
	out, err := json.Marshal(ProgressVector{"", Achieved})
	require.NoError(t, err)
	assert.JSONEq(t, `["not_achieved","achieved"]`, string(out))
}

func TestObjectiveStatus_Rank(t *testing.T) {
	assert.Greater(t, Achieved.Rank(), InProgress.Rank())
	assert.Greater(t, InProgress.Rank(), NotAchieved.Rank())
	assert.Equal(t, NotAchieved.Rank(), ObjectiveStatus("").Rank())
}

func TestProgressVector_Helpers(t *testing.T) {
	v := NewProgressVector(3)
	assert.Equal(t, ProgressVector{NotAchieved, NotAchieved, NotAchieved}, v)
	assert.Equal(t, NotAchieved, v.At(10))
	assert.Equal(t, NotAchieved, v.At(-1))

	long := ProgressVector{Achieved, InProgress, Achieved}
	assert.Equal(t, ProgressVector{Achieved, InProgress}, long.Truncate(2))
	assert.Equal(t, long, long.Truncate(5))

	a, i, n := ProgressVector{Achieved, InProgress, NotAchieved, ""}.Count()
	assert.Equal(t, []int{1, 1, 2}, []int{a, i, n})
}

func TestProgressRecord_VectorColumn(t *testing.T) {
	var rec ProgressRecord
	rec.SetVector(ProgressVector{Achieved, InProgress})

	value, err := rec.Objectives.Value()
	require.NoError(t, err)

	var loaded ProgressRecord
	require.NoError(t, loaded.Objectives.Scan(value))
	assert.Equal(t, ProgressVector{Achieved, InProgress}, loaded.Vector())
}

func TestPairObjectives(t *testing.T) {
	objectives := []Objective{{ID: "a", Text: "first"}, {ID: "b", Text: "second"}}

	paired := PairObjectives(objectives, ProgressVector{Achieved})

	require.Len(t, paired, 2)
	assert.Equal(t, ObjectiveProgress{ID: "a", Text: "first", Status: Achieved}, paired[0])
	assert.Equal(t, NotAchieved, paired[1].Status)
}
