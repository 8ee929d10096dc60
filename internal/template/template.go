// Package template finds likely IaC template files under a directory and
// packages them into the zip archive the scan API expects.
package template

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Generic .json/.yaml files are everywhere in a repo; the name heuristic
// keeps the upload down to files that are plausibly IaC templates.
var iacNamePattern = regexp.MustCompile(`(?i)(main|infra|template|cloudformation|terraform|cdk|stack)`)

var supportedExtensions = map[string]bool{
	".tf":       true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".template": true,
}

// File is a discovered template file. RelPath is relative to the search
// root and doubles as the file's name inside the archive.
type File struct {
	Path    string
	RelPath string
}

// FindTemplates walks root and returns every file with a supported IaC
// extension and a likely-IaC name, in lexical path order. An empty result
// is not an error; a missing root is.
func FindTemplates(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %s: not a directory: %w", root, fs.ErrNotExist)
	}

	var found []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if !iacNamePattern.MatchString(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		log.Printf("found template: %s", rel)
		found = append(found, File{Path: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	log.Printf("found %d likely IaC template files under %s", len(found), root)
	return found, nil
}
