package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDictionaryName(t *testing.T) {
	var tests = []struct {
		id   int
		name string
		ok   bool
	}{
		{0, "DICT_4X4_50", true},
		{10, "DICT_6X6_250", true},
		{16, "DICT_ARUCO_ORIGINAL", true},
		{20, "DICT_APRILTAG_36h11", true},
		{21, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		name, err := DictionaryName(tt.id)
		if tt.ok && err != nil {
			t.Errorf("id %d: unexpected error %v", tt.id, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("id %d: expected error", tt.id)
		}
		if name != tt.name {
			t.Errorf("id %d: got %q, want %q", tt.id, name, tt.name)
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2017, 11, 11, 9, 5, 3, 0, time.Local)
	if got := Timestamp(ts); got != "2017-11-11.09:05:03" {
		t.Error("unexpected timestamp: ", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/calib/camera.yml"); got != filepath.Join(home, "calib", "camera.yml") {
		t.Error("unexpected path: ", got)
	}
	if got := ExpandPath("/etc/camera.yml"); got != "/etc/camera.yml" {
		t.Error("unexpected path: ", got)
	}
}
