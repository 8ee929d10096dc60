// parse-results re-reports a saved scan result file without re-running a
// scan. Useful when a CI step wants to fail on a results.json produced
// earlier in the pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yourorg/qualys-iac-scan/internal/model"
	"github.com/yourorg/qualys-iac-scan/internal/report"
)

func main() {
	var file = flag.String("file", "results.json", "path to the scan result JSON file")
	flag.Parse()

	// allow the path as a positional argument too
	path := *file
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	sr, err := report.LoadResultFile(path)
	if err != nil {
		log.Fatalf("parse-results: %v", err)
	}

	// Unlike the poll loop, re-reporting is strict: a saved payload that is
	// not FINISHED is an error, not an empty report.
	if sr.Status != model.StatusFinished {
		log.Printf("scan status was %q, not %q", sr.Status, model.StatusFinished)
		os.Exit(1)
	}

	if report.Report(os.Stdout, report.ExtractFailures(sr)) {
		fmt.Fprintln(os.Stderr, "failures were detected")
		os.Exit(1)
	}
	fmt.Println("no failed checks or parsing errors found")
}
