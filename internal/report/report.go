package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

// errorPrefix is the annotation marker GitHub Actions and compatible CI
// systems turn into inline error annotations.
const errorPrefix = "::error::"

// Report writes one annotation line per failure and reports whether any
// were written. The returned bool is the scan verdict: true means the build
// should fail.
func Report(w io.Writer, failures []model.Failure) bool {
	found := false
	for _, f := range failures {
		found = true
		if f.Check == nil {
			fmt.Fprintf(w, "%sParsing error file paths=%v\n", errorPrefix, f.ParsingErrors)
			continue
		}
		fields := []string{
			"File Name=" + orNone(f.Check.FilePath),
			"Qualys CID=" + orNone(f.Check.CheckID),
			"Control Name=" + orNone(f.Check.CheckName),
			"Criticality=" + orNone(f.Check.Criticality),
			"Remediation=" + orNone(f.Check.Remediation),
		}
		fmt.Fprintf(w, "%s%s\n", errorPrefix, strings.Join(fields, ", "))
	}
	return found
}

// Missing fields are rendered, not dropped, so annotation lines always
// carry the full field set.
func orNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}
