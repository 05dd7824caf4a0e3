package cmd

import (
	"testing"
)

func TestPathsOverlap(t *testing.T) {
	tests := []struct {
		name       string
		image      string
		mountpoint string
		expected   bool
	}{
		{
			name:       "image is the mountpoint",
			image:      "/mnt/wfs",
			mountpoint: "/mnt/wfs",
			expected:   true,
		},
		{
			name:       "image inside mountpoint",
			image:      "/mnt/wfs/disk.img",
			mountpoint: "/mnt/wfs",
			expected:   true,
		},
		{
			name:       "mountpoint below image path",
			image:      "/srv/disk.img",
			mountpoint: "/srv/disk.img/mnt",
			expected:   true,
		},
		{
			name:       "image beside mountpoint",
			image:      "/srv/images/disk.img",
			mountpoint: "/mnt/wfs",
			expected:   false,
		},
		{
			name:       "shared name prefix",
			image:      "/mnt/wfs.img",
			mountpoint: "/mnt/wfs",
			expected:   false,
		},
		{
			name:       "relative image inside mountpoint",
			image:      "mnt/disk.img",
			mountpoint: "mnt",
			expected:   true,
		},
		{
			name:       "relative siblings",
			image:      "disk.img",
			mountpoint: "mnt",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathsOverlap(tt.image, tt.mountpoint); got != tt.expected {
				t.Errorf("pathsOverlap(%q, %q) = %v, want %v", tt.image, tt.mountpoint, got, tt.expected)
			}
		})
	}
}
