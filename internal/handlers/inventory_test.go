package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscan/shelfscan/internal/models"
)

func TestPhotoKey(t *testing.T) {
	front := "scans/abc/front.jpg"
	right := "scans/abc/right.jpg"
	p := &models.Product{
		ImageFront: &front,
		ImageRight: &right,
	}

	tests := []struct {
		imageType string
		want      *string
	}{
		{"front", &front},
		{"left", nil}, // no left photo stored
		{"right", &right},
		{"back", nil}, // not a known side
		{"", nil},
	}

	for _, tt := range tests {
		t.Run("type "+tt.imageType, func(t *testing.T) {
			got := photoKey(p, tt.imageType)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestPhotoFieldsCoverAllSides(t *testing.T) {
	// The upload field list and photoKey must agree on the known sides.
	p := &models.Product{}
	all := ""
	for _, pf := range photoFields {
		key := pf.imageType + ".jpg"
		switch pf.imageType {
		case "front":
			p.ImageFront = &key
		case "left":
			p.ImageLeft = &key
		case "right":
			p.ImageRight = &key
		}
		all += pf.imageType
	}
	assert.Equal(t, "frontleftright", all)

	for _, pf := range photoFields {
		got := photoKey(p, pf.imageType)
		require.NotNil(t, got, pf.imageType)
		assert.Equal(t, pf.imageType+".jpg", *got)
	}
}
