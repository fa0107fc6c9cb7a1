package store

import (
	"encoding/json"
	"fmt"

	"github.com/kwilcz/traceflow/internal/clip"
)

// marshalClips serializes a batch's clip array to the wire-format JSON
// stored in the clips column.
func marshalClips(clips []clip.Clip) (string, error) {
	if clips == nil {
		clips = []clip.Clip{}
	}
	data, err := json.Marshal(clips)
	if err != nil {
		return "", fmt.Errorf("marshal clips: %w", err)
	}
	return string(data), nil
}

// unmarshalClips deserializes a stored clips column.
func unmarshalClips(data string) ([]clip.Clip, error) {
	var clips []clip.Clip
	if err := json.Unmarshal([]byte(data), &clips); err != nil {
		return nil, fmt.Errorf("unmarshal clips: %w", err)
	}
	return clips, nil
}
