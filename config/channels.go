package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Channel is one archived channel and its capacity ceiling.
type Channel struct {
	// Name is the channel handle without the leading "@".
	Name string `json:"channel_name"`
	// VideoCount is the maximum number of items kept on disk.
	VideoCount int `json:"video_count"`
}

// LoadChannels reads the channel list from a JSON file.
func LoadChannels(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var channels []Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, ch := range channels {
		if ch.Name == "" {
			return nil, fmt.Errorf("%s: channel %d has empty channel_name", path, i)
		}
		if ch.VideoCount <= 0 {
			return nil, fmt.Errorf("%s: channel %q has non-positive video_count", path, ch.Name)
		}
	}
	return channels, nil
}
