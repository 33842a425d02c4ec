package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses an array of claim objects.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed claims.
func (p *JSONParser) Parse(r io.Reader) ([]RawClaim, error) {
	var claims []RawClaim

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&claims); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Array index + 1
	for i := range claims {
		claims[i].LineNum = i + 1
	}

	return claims, nil
}
