package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		total     int64
		wantPages int
	}{
		{"empty result set", 1, 10, 0, 0},
		{"exact multiple", 1, 10, 30, 3},
		{"partial last page", 2, 10, 31, 4},
		{"single item", 1, 10, 1, 1},
		{"limit of one", 3, 1, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.page, p.Current)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.limit, p.Limit)
		})
	}
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = NormalizePage(-5, 1000)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)

	page, limit = NormalizePage(7, 25)
	assert.Equal(t, 7, page)
	assert.Equal(t, 25, limit)
}

func TestDetectionResultsRecount(t *testing.T) {
	r := DetectionResults{
		Faces:           []FaceDetection{{Confidence: 0.9}, {Confidence: 0.8}},
		BodyParts:       []BodyPartDetection{{Name: "hand"}},
		TotalDetections: 99,
	}
	r.Recount()
	assert.Equal(t, 3, r.TotalDetections)

	empty := DetectionResults{TotalDetections: 5}
	empty.Recount()
	assert.Equal(t, 0, empty.TotalDetections)
}

func TestDetectionTypeValidity(t *testing.T) {
	assert.True(t, DetectionFace.ValidForUpload())
	assert.True(t, DetectionBody.ValidForUpload())
	assert.True(t, DetectionBoth.ValidForUpload())
	assert.False(t, DetectionObjects.ValidForUpload())
	assert.False(t, DetectionType("x").ValidForUpload())

	assert.True(t, DetectionObjects.ValidForRealtime())
	assert.True(t, DetectionFace.ValidForRealtime())
	assert.False(t, DetectionType("x").ValidForRealtime())
}
