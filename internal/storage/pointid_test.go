package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("9f86d081884c7d659a2feaa0c55ad015")
	b := PointID("9f86d081884c7d659a2feaa0c55ad015")
	assert.Equal(t, a, b, "Same entry id must map to the same point id")

	_, err := uuid.Parse(a)
	assert.NoError(t, err, "Point id must be a valid UUID")
}

func TestPointIDDistinct(t *testing.T) {
	assert.NotEqual(t, PointID("9f86d081884c7d65"), PointID("9f86d081884c7d66"))
}
