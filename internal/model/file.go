package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a model saved by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	for i, o := range m.Objects {
		if o == nil {
			return nil, fmt.Errorf("parse model %s: object %d is null", path, i+1)
		}
		for j, c := range o.Contours {
			if c == nil {
				o.Contours[j] = &Contour{}
			}
		}
	}
	return m, nil
}

// Save writes the model as indented JSON. The undo log is not saved.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
