package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageExtension(t *testing.T) {
	jpeg := supportedImageTypes["image/jpeg"]
	png := supportedImageTypes["image/png"]

	tests := []struct {
		name     string
		filename string
		allowed  []string
		want     string
	}{
		{name: "uppercase is lowered", filename: "photo.JPG", allowed: jpeg, want: ".jpg"},
		{name: "alternate extension kept", filename: "photo.jpeg", allowed: jpeg, want: ".jpeg"},
		{name: "mixed case alternate", filename: "photo.JpEg", allowed: jpeg, want: ".jpeg"},
		{name: "mismatch falls back to canonical", filename: "cat.jpg", allowed: png, want: ".png"},
		{name: "no extension", filename: "upload", allowed: jpeg, want: ".jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageExtension(tt.filename, tt.allowed))
		})
	}
}
