package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/opfixture/internal/compiler"
	"github.com/roach88/opfixture/internal/fixture"
	"github.com/roach88/opfixture/internal/ir"
)

// LoadMode controls how errors are handled during fixture loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the fixtures loaded from a directory, sorted by name.
type LoadResult struct {
	Fixtures []*ir.Model
	Sources  map[string]string // fixture name -> file it was loaded from
	Files    []string
}

// LoadError represents an error that occurred during fixture loading.
type LoadError struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
// Builder errors keep their own codes (E201-E206, see package fixture).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No fixture files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDuplicate   = "E008" // Same fixture name in two files
)

var fixtureExts = []string{".cue", ".yaml", ".yml", ".json"}

// LoadFixtures loads every fixture in dir (not recursive).
//
// CUE files form one package and declare fixtures under `fixture: <name>:`.
// YAML files hold one or more "---" separated documents. JSON files hold a
// canonical fixture or an array of them.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadFixtures(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("fixtures directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing fixtures directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindFixtureFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no fixture files (.cue, .yaml, .json) found in %s", dir)}}
	}

	l := &loader{
		mode:   mode,
		result: &LoadResult{Files: files, Sources: map[string]string{}},
	}

	var cueFiles []string
	for _, file := range files {
		switch filepath.Ext(file) {
		case ".cue":
			cueFiles = append(cueFiles, file)
		case ".yaml", ".yml":
			models, err := compiler.LoadYAMLFile(file)
			if err != nil {
				l.fail(&LoadError{Code: errorCode(err), Message: err.Error(), File: file})
			}
			l.add(file, models)
		case ".json":
			l.loadJSON(file)
		}
		if l.stop() {
			return l.result, l.errs
		}
	}

	if len(cueFiles) > 0 {
		l.loadCUE(dir)
	}

	slices.SortFunc(l.result.Fixtures, func(a, b *ir.Model) int {
		return strings.Compare(a.Name, b.Name)
	})
	return l.result, l.errs
}

type loader struct {
	mode   LoadMode
	result *LoadResult
	errs   []error
}

func (l *loader) fail(err error) {
	l.errs = append(l.errs, err)
}

func (l *loader) stop() bool {
	return l.mode == LoadModeFailFast && len(l.errs) > 0
}

// add records models loaded from file, rejecting names already loaded
// from another file.
func (l *loader) add(file string, models []*ir.Model) {
	for _, m := range models {
		if prev, ok := l.result.Sources[m.Name]; ok {
			l.fail(&LoadError{
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("fixture %q is defined in both %s and %s", m.Name, filepath.Base(prev), filepath.Base(file)),
				File:    file,
			})
			continue
		}
		l.result.Sources[m.Name] = file
		l.result.Fixtures = append(l.result.Fixtures, m)
	}
}

func (l *loader) loadJSON(file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		l.fail(&LoadError{Code: ErrCodeGeneric, Message: err.Error(), File: file})
		return
	}
	models, err := compiler.ParseCanonicalList(data)
	if err != nil {
		l.fail(&LoadError{Code: errorCode(err), Message: err.Error(), File: file})
		return
	}
	l.add(file, models)
}

func (l *loader) loadCUE(dir string) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		l.fail(&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"})
		return
	}

	inst := instances[0]
	if inst.Err != nil {
		l.fail(&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)})
		return
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		l.fail(&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)})
		return
	}

	fixtures := value.LookupPath(cue.ParsePath("fixture"))
	if !fixtures.Exists() {
		return
	}
	iter, err := fixtures.Fields()
	if err != nil {
		l.fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating fixtures: %v", err)})
		return
	}

	for iter.Next() {
		v := iter.Value()
		file := v.Pos().Filename()
		m, err := compiler.CompileFixture(v)
		if err != nil {
			l.fail(convertCompileError(err, "fixture."+iter.Label(), file))
			if l.stop() {
				return
			}
			continue
		}
		l.add(file, []*ir.Model{m})
		if l.stop() {
			return
		}
	}
}

// FindFixtureFiles returns the fixture files directly inside dir, sorted.
func FindFixtureFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(fixtureExts, filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    errorCode(err),
			Message: fmt.Sprintf("%s.%s: %s", context, compileErr.Field, compileErr.Message),
			File:    file,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    errorCode(err),
		Message: fmt.Sprintf("%s: %v", context, err),
		File:    file,
	}
}

// errorCode picks the most specific code for a loading error.
func errorCode(err error) string {
	if code := fixture.ErrorCode(err); code != "" {
		return code
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Field == "cue" {
		return ErrCodeBuildFailed
	}
	return ErrCodeGeneric
}

// loadErrorParts returns the code and message of any loading error.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return errorCode(err), err.Error()
}
