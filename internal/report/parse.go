package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

// Some pipelines save the API output with this banner in front of the JSON.
const resultPreamble = "The scan result is successfully retrieved. JSON output is as follows:"

// LoadResultFile reads a saved scan result, stripping the known text
// preamble when present, and decodes it into a ScanResult.
func LoadResultFile(path string) (*model.ScanResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan result: %w", err)
	}
	if i := bytes.Index(raw, []byte(resultPreamble)); i >= 0 {
		raw = raw[i+len(resultPreamble):]
	}
	var sr model.ScanResult
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decode scan result %s: %w", path, err)
	}
	sr.Raw = raw
	return &sr, nil
}
