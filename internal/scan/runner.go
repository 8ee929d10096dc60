// Package scan runs the full pipeline: locate templates, archive, upload,
// poll, persist results, and report failures.
package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/qualys-iac-scan/internal/config"
	"github.com/yourorg/qualys-iac-scan/internal/db"
	"github.com/yourorg/qualys-iac-scan/internal/model"
	"github.com/yourorg/qualys-iac-scan/internal/qualys"
	"github.com/yourorg/qualys-iac-scan/internal/report"
	s3c "github.com/yourorg/qualys-iac-scan/internal/s3"
	"github.com/yourorg/qualys-iac-scan/internal/template"
)

type Runner struct {
	cfg    config.Config
	client *qualys.Client
	store  *db.Store  // nil when run history is disabled
	s3     *s3c.Client // nil when artifact upload is disabled

	// Out receives the CI annotation lines. Defaults to stdout.
	Out io.Writer
}

func NewRunner(cfg config.Config, client *qualys.Client, store *db.Store, s3 *s3c.Client) *Runner {
	return &Runner{cfg: cfg, client: client, store: store, s3: s3, Out: os.Stdout}
}

// Run executes one scan pipeline. The returned bool is true when the scan
// finished and at least one failure was reported; it is the only signal the
// caller should turn into a failing exit code besides err itself.
func (r *Runner) Run(ctx context.Context) (bool, error) {
	files, err := template.FindTemplates(r.cfg.TemplateDir)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		log.Printf("no IaC template files found under %s, nothing to scan", r.cfg.TemplateDir)
		return false, nil
	}

	runID := uuid.NewString()
	scanName := "iac-scan-" + time.Now().Format("20060102150405")

	if r.store != nil {
		if err := r.store.InsertRun(ctx, runID, scanName); err != nil {
			log.Printf("run %s: record start failed: %v", runID, err)
		}
	}

	failed, failures, runErr := r.runScan(ctx, runID, scanName, files)
	r.recordOutcome(runID, failures, runErr)
	return failed, runErr
}

func (r *Runner) runScan(ctx context.Context, runID, scanName string, files []template.File) (bool, int, error) {
	archivePath := filepath.Join(r.cfg.ScratchDir, fmt.Sprintf(".iac-scan-%s.zip", runID))
	// The scratch archive must not outlive the run on any exit path,
	// including a partially written file.
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			log.Printf("run %s: remove scratch archive: %v", runID, err)
		}
	}()

	if err := template.WriteArchive(archivePath, files, r.cfg.TemplateDir); err != nil {
		return false, 0, err
	}

	scanUUID, err := r.client.StartScan(ctx, archivePath, scanName)
	if err != nil {
		return false, 0, err
	}
	if r.store != nil {
		if err := r.store.SetScanUUID(ctx, runID, scanUUID); err != nil {
			log.Printf("run %s: record scan uuid failed: %v", runID, err)
		}
	}

	result, err := qualys.WaitForResult(ctx, r.client, scanUUID, r.cfg.PollInterval, r.cfg.PollTimeout)
	if err != nil {
		return false, 0, err
	}

	resultsPath := filepath.Join(r.cfg.ResultsDir, "results.json")
	if err := writeResultJSON(resultsPath, result.Raw); err != nil {
		return false, 0, err
	}
	log.Printf("scan %s: results saved to %s", scanUUID, resultsPath)

	sarif, err := r.client.FetchSarif(ctx, scanUUID)
	if err != nil {
		return false, 0, err
	}
	sarifPath := filepath.Join(r.cfg.ResultsDir, "results.sarif")
	if err := os.WriteFile(sarifPath, sarif, 0o644); err != nil {
		return false, 0, fmt.Errorf("write %s: %w", sarifPath, err)
	}
	log.Printf("scan %s: sarif saved to %s", scanUUID, sarifPath)

	r.uploadArtifacts(ctx, runID, resultsPath, sarifPath)

	// The poll loop only hands back FINISHED payloads, but the persisted
	// payload is re-verified strictly: reporting against anything else
	// would pass a scan that never completed.
	if result.Status != model.StatusFinished {
		return false, 0, fmt.Errorf("scan %s: persisted status is %q, not %q", scanUUID, result.Status, model.StatusFinished)
	}

	failures := report.ExtractFailures(result)
	failed := report.Report(r.Out, failures)
	return failed, len(failures), nil
}

// recordOutcome updates the run-history row. It uses a fresh context so the
// outcome is still written when the run context was cancelled.
func (r *Runner) recordOutcome(runID string, failures int, runErr error) {
	if r.store == nil {
		return
	}
	dbctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if runErr != nil {
		if err := r.store.MarkFailed(dbctx, runID, runErr.Error()); err != nil {
			log.Printf("run %s: mark failed error: %v", runID, err)
		}
		return
	}
	bucket, keyPrefix := r.cfg.ReportsBucket, "iac-scans/"+runID
	if r.s3 == nil {
		bucket, keyPrefix = "", ""
	}
	if err := r.store.MarkFinished(dbctx, runID, failures, bucket, keyPrefix); err != nil {
		log.Printf("run %s: mark finished error: %v", runID, err)
	}
}

// uploadArtifacts copies the persisted result files to the reports bucket.
// Upload problems are logged, not fatal: the scan verdict comes from the
// local artifacts.
func (r *Runner) uploadArtifacts(ctx context.Context, runID, resultsPath, sarifPath string) {
	if r.s3 == nil {
		return
	}
	jsonKey := fmt.Sprintf("iac-scans/%s/results.json", runID)
	if err := r.s3.UploadFile(ctx, r.cfg.ReportsBucket, jsonKey, resultsPath, "application/json"); err != nil {
		log.Printf("run %s: upload results.json: %v", runID, err)
	}
	sarifKey := fmt.Sprintf("iac-scans/%s/results.sarif", runID)
	if err := r.s3.UploadFile(ctx, r.cfg.ReportsBucket, sarifKey, sarifPath, "application/json"); err != nil {
		log.Printf("run %s: upload results.sarif: %v", runID, err)
	}
}

// writeResultJSON pretty-prints the raw payload with 4-space indentation,
// preserving every field the API returned.
func writeResultJSON(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		// the payload decoded once already; fall back to the raw bytes
		buf.Reset()
		buf.Write(raw)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
