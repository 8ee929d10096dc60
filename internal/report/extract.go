// Package report turns a terminal scan payload into CI error annotations.
package report

import (
	"encoding/json"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

// ExtractFailures walks the result entries in order and collects one record
// per non-empty parsingErrors list followed by one record per failed check,
// preserving the API's ordering. Entries that do not decode as result
// objects are skipped rather than failing the report; the payload arrays
// are known to carry the occasional malformed element.
func ExtractFailures(sr *model.ScanResult) []model.Failure {
	var out []model.Failure
	for _, raw := range sr.Result {
		var entry model.ResultEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if len(entry.Results.ParsingErrors) > 0 {
			out = append(out, model.Failure{ParsingErrors: entry.Results.ParsingErrors})
		}
		for i := range entry.Results.FailedChecks {
			out = append(out, model.Failure{Check: &entry.Results.FailedChecks[i]})
		}
	}
	return out
}
