package export

import "encoding/json"

// JSON marshals snap as indented JSON.
func JSON(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}
