package dto

import (
	"errors"
	"testing"

	"github.com/spothole/spothole-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestValidate_CreatePotholeRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       CreatePotholeRequest
		wantField string
	}{
		{
			name: "valid without severity",
			req:  CreatePotholeRequest{Longitude: ptr(72.8777), Latitude: ptr(19.0760), ImageURL: "https://x/1.jpg"},
		},
		{
			name: "valid with severity",
			req:  CreatePotholeRequest{Longitude: ptr(0), Latitude: ptr(0), ImageURL: "https://x/1.jpg", Severity: "Critical"},
		},
		{
			name:      "missing longitude",
			req:       CreatePotholeRequest{Latitude: ptr(19), ImageURL: "https://x/1.jpg"},
			wantField: "longitude",
		},
		{
			name:      "latitude out of range",
			req:       CreatePotholeRequest{Longitude: ptr(72), Latitude: ptr(95), ImageURL: "https://x/1.jpg"},
			wantField: "latitude",
		},
		{
			name:      "missing image",
			req:       CreatePotholeRequest{Longitude: ptr(72), Latitude: ptr(19)},
			wantField: "imageUrl",
		},
		{
			name:      "unknown severity",
			req:       CreatePotholeRequest{Longitude: ptr(72), Latitude: ptr(19), ImageURL: "https://x/1.jpg", Severity: "Huge"},
			wantField: "severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Contains(t, verr.Message, tt.wantField)
		})
	}
}
