package model

import "encoding/json"

// StatusFinished is the terminal scan status. Every other status the API
// returns ("SUBMITTED", "PROCESSING", ...) means the scan is still running.
const StatusFinished = "FINISHED"

// ScanResult is the payload of the scanResult endpoint. The result array is
// kept as raw messages so one malformed entry can be skipped without losing
// the rest of the report.
type ScanResult struct {
	Status string            `json:"status"`
	Result []json.RawMessage `json:"result"`

	// Raw holds the response body exactly as the API returned it, for
	// verbatim persistence to results.json.
	Raw []byte `json:"-"`
}

type ResultEntry struct {
	Results CheckResults `json:"results"`
}

type CheckResults struct {
	ParsingErrors []string       `json:"parsingErrors"`
	FailedChecks  []CheckFailure `json:"failedChecks"`
}

// CheckFailure is a single failed control. All fields are optional in the
// API response; empty values are still rendered in the report.
type CheckFailure struct {
	FilePath    string `json:"filePath"`
	CheckID     string `json:"checkId"`
	CheckName   string `json:"checkName"`
	Criticality string `json:"criticality"`
	Remediation string `json:"remediation"`
}
