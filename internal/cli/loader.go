package cli

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/kwilcz/traceflow/internal/clip"
)

//go:embed schema.cue
var logSchemaCUE string

// LoadMode controls how errors are handled during log loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the batches decoded from a set of export files.
type LoadResult struct {
	Inputs    []clip.TraceLogInput
	FileCount int
}

// LoadError represents an error that occurred during log loading.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // File read error
	ErrCodeNoFiles      = "E003" // No input files given
	ErrCodeDecodeFailed = "E004" // JSON decode failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeSchemaFailed = "E006" // Schema validation failed
	ErrCodeWriteFailed  = "E007" // Store write error

	// Trace reconstruction diagnostics
	ErrCodeNoSupportedEvents = "E101" // Input carried only protocol traffic
	ErrCodeNoSteps           = "E102" // No orchestration steps reconstructed
)

// LoadTraceLogs reads recorder export files, validates every batch
// against the embedded wire schema, and decodes them. A file holds
// either a single batch object or an array of batches.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors and returns every
// batch that validated.
func LoadTraceLogs(paths []string, mode LoadMode) (*LoadResult, []error) {
	if len(paths) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no input files given"}}
	}

	cuectx := cuecontext.New()
	schema := cuectx.CompileString(logSchemaCUE)
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("compiling wire schema: %v", err)}}
	}
	batchDef := schema.LookupPath(cue.ParsePath("#LogBatch"))

	result := &LoadResult{}
	var errs []error

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			errs = append(errs, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: err.Error()})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.FileCount++

		batches, err := splitBatches(data)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeDecodeFailed, Path: path, Message: err.Error()})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for i, raw := range batches {
			if err := validateBatch(cuectx, batchDef, raw); err != nil {
				errs = append(errs, &LoadError{
					Code:    ErrCodeSchemaFailed,
					Path:    path,
					Message: fmt.Sprintf("batch %d: %v", i, err),
				})
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}

			var input clip.TraceLogInput
			if err := json.Unmarshal(raw, &input); err != nil {
				errs = append(errs, &LoadError{
					Code:    ErrCodeDecodeFailed,
					Path:    path,
					Message: fmt.Sprintf("batch %d: %v", i, err),
				})
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Inputs = append(result.Inputs, input)
		}
	}

	return result, errs
}

// splitBatches returns the raw JSON of every batch in an export file,
// accepting both a single object and an array of objects.
func splitBatches(data []byte) ([]json.RawMessage, error) {
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		var batches []json.RawMessage
		if err := json.Unmarshal(data, &batches); err != nil {
			return nil, err
		}
		return batches, nil
	case '{':
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON object")
		}
		return []json.RawMessage{json.RawMessage(data)}, nil
	default:
		return nil, fmt.Errorf("export must be a JSON object or array")
	}
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// validateBatch unifies one raw batch with the #LogBatch definition.
// JSON is a subset of CUE, so the payload compiles directly.
func validateBatch(cuectx *cue.Context, batchDef cue.Value, raw json.RawMessage) error {
	value := cuectx.CompileBytes(raw)
	if err := value.Err(); err != nil {
		return err
	}
	unified := batchDef.Unify(value)
	return unified.Validate(cue.Concrete(true))
}
