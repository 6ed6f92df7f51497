package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dictionary names indexed by their predefined dictionary ID.
var dictionaryNames = []string{
	"DICT_4X4_50", "DICT_4X4_100", "DICT_4X4_250", "DICT_4X4_1000",
	"DICT_5X5_50", "DICT_5X5_100", "DICT_5X5_250", "DICT_5X5_1000",
	"DICT_6X6_50", "DICT_6X6_100", "DICT_6X6_250", "DICT_6X6_1000",
	"DICT_7X7_50", "DICT_7X7_100", "DICT_7X7_250", "DICT_7X7_1000",
	"DICT_ARUCO_ORIGINAL",
	"DICT_APRILTAG_16h5", "DICT_APRILTAG_25h9", "DICT_APRILTAG_36h10", "DICT_APRILTAG_36h11",
}

// DictionaryName returns the name of a predefined marker dictionary.
func DictionaryName(id int) (string, error) {
	if id < 0 || id >= len(dictionaryNames) {
		return "", fmt.Errorf("unknown dictionary id %d, expected 0-%d", id, len(dictionaryNames)-1)
	}
	return dictionaryNames[id], nil
}

// DictionaryHelp lists the dictionaries for flag usage text.
func DictionaryHelp() string {
	parts := make([]string, len(dictionaryNames))
	for i, name := range dictionaryNames {
		parts[i] = fmt.Sprintf("%s=%d", name, i)
	}
	return strings.Join(parts, ", ")
}

// Timestamp formats t the way the consumer prefixes received messages.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02.15:04:05")
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
