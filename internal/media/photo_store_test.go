package media

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhotoExtensionRules(t *testing.T) {
	tests := []struct {
		filename string
		allowed  bool
	}{
		{"avatar.jpg", true},
		{"avatar.jpeg", true},
		{"avatar.png", true},
		{"AVATAR.PNG", true},
		{"avatar.gif", false},
		{"avatar.webp", false},
		{"avatar", false},
		{"avatar.png.exe", false},
	}

	for _, tt := range tests {
		ext := strings.ToLower(filepath.Ext(tt.filename))
		_, ok := photoContentTypes[ext]
		assert.Equal(t, tt.allowed, ok, "filename=%s", tt.filename)
	}
}
