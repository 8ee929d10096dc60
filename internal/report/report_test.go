package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

func TestExtractFailuresOrderAndTolerance(t *testing.T) {
	sr := &model.ScanResult{
		Status: model.StatusFinished,
		Result: []json.RawMessage{
			json.RawMessage(`{"results":{"parsingErrors":["bad.tf","worse.tf"]}}`),
			json.RawMessage(`"not a result object"`),
			json.RawMessage(`{"results":{"failedChecks":[{"checkId":"CID-1"},{"checkId":"CID-2"}]}}`),
		},
	}

	failures := ExtractFailures(sr)
	require.Len(t, failures, 3)

	assert.Equal(t, []string{"bad.tf", "worse.tf"}, failures[0].ParsingErrors)
	require.NotNil(t, failures[1].Check)
	assert.Equal(t, "CID-1", failures[1].Check.CheckID)
	require.NotNil(t, failures[2].Check)
	assert.Equal(t, "CID-2", failures[2].Check.CheckID)
}

func TestExtractFailuresEmptyPayload(t *testing.T) {
	assert.Empty(t, ExtractFailures(&model.ScanResult{Status: model.StatusFinished}))
}

func TestReportRendersNoneForMissingFields(t *testing.T) {
	var out bytes.Buffer
	failed := Report(&out, []model.Failure{
		{Check: &model.CheckFailure{CheckID: "CID-1", Criticality: "HIGH"}},
	})

	assert.True(t, failed)
	assert.Equal(t,
		"::error::File Name=None, Qualys CID=CID-1, Control Name=None, Criticality=HIGH, Remediation=None\n",
		out.String())
}

func TestReportParsingErrorLine(t *testing.T) {
	var out bytes.Buffer
	failed := Report(&out, []model.Failure{
		{ParsingErrors: []string{"a.tf", "b.tf"}},
	})

	assert.True(t, failed)
	assert.Equal(t, "::error::Parsing error file paths=[a.tf b.tf]\n", out.String())
}

func TestReportNothingToReport(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, Report(&out, nil))
	assert.Empty(t, out.String())
}

func TestLoadResultFileStripsPreamble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	content := "The scan result is successfully retrieved. JSON output is as follows:" +
		`{"status":"FINISHED","result":[]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sr, err := LoadResultFile(path)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, sr.Status)
}

func TestLoadResultFilePlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status":"PROCESSING"}`), 0o644))

	sr, err := LoadResultFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PROCESSING", sr.Status)
}

func TestLoadResultFileErrors(t *testing.T) {
	_, err := LoadResultFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadResultFile(path)
	assert.Error(t, err)
}
