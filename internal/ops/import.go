package ops

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/project"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any bad record or collision, write nothing
	ImportModeReplace ImportMode = "replace" // overwrite on collision, skip bad records
)

// maxImportLine bounds a single JSONL record.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required for ImportFile
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a record that was not imported.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line    int
	project project.Project
}

// ImportFile imports projects from a JSONL or JSON array file.
func (s *Service) ImportFile(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	file, err := os.Open(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("import file not found: %s", input.Path))
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	return s.Import(ctx, file, input.Mode)
}

// Import reads projects from r, either one JSON object per line or a single
// JSON array, and stores them according to mode.
func (s *Service) Import(ctx context.Context, r io.Reader, mode ImportMode) (*ImportOutput, error) {
	if mode == "" {
		mode = ImportModeError
	}
	if mode != ImportModeError && mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}

	records, parseErrors := parseImport(r)

	switch mode {
	case ImportModeError:
		return s.importModeError(ctx, records, parseErrors)
	default:
		return s.importModeReplace(ctx, records, parseErrors)
	}
}

// importModeError checks every record, then writes them all in one batch.
func (s *Service) importModeError(ctx context.Context, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	if len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		id := rec.project.ID
		if id == "" {
			continue
		}
		if seen[id] {
			return &ImportOutput{Errors: []ImportError{collision(rec, "duplicate id in import")}}, nil
		}
		seen[id] = true

		_, err := s.catalog.GetByID(ctx, id)
		if err == nil {
			return &ImportOutput{Errors: []ImportError{collision(rec, fmt.Sprintf("project with id %q already exists", id))}}, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	projects := make([]project.Project, len(records))
	for i, rec := range records {
		projects[i] = rec.project
	}
	if err := s.catalog.InsertAll(ctx, projects); err != nil {
		// A row written between the check above and the batch insert.
		if sErr, ok := errors.As(err); ok && sErr.Code == errors.ErrAlreadyExists {
			id, _ := sErr.Details["id"].(string)
			return &ImportOutput{Errors: []ImportError{{ID: id, Code: "ID_COLLISION", Message: sErr.Message}}}, nil
		}
		return nil, err
	}
	return &ImportOutput{Imported: len(projects), Errors: []ImportError{}}, nil
}

// importModeReplace upserts every valid record and reports the rest.
func (s *Service) importModeReplace(ctx context.Context, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Errors: append([]ImportError{}, parseErrors...), Skipped: len(parseErrors)}
	for i := range records {
		if err := s.catalog.Upsert(ctx, &records[i].project); err != nil {
			if _, ok := errors.As(err); !ok || errors.Is(err, errors.ErrInternal) {
				return nil, err
			}
			out.Skipped++
			out.Errors = append(out.Errors, ImportError{Line: records[i].line, ID: records[i].project.ID, Code: "WRITE_ERROR", Message: err.Error()})
			continue
		}
		out.Imported++
	}
	return out, nil
}

func collision(rec importRecord, msg string) ImportError {
	return ImportError{Line: rec.line, ID: rec.project.ID, Code: "ID_COLLISION", Message: msg}
}

// parseImport decodes and validates every record. A leading '[' selects
// JSON array input; records are then numbered by array position.
func parseImport(r io.Reader) ([]importRecord, []ImportError) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, []ImportError{{Code: "READ_ERROR", Message: fmt.Sprintf("failed to read input: %v", err)}}
	}
	if first == '[' {
		return parseArray(br)
	}
	return parseLines(br)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != ' ' && b != '\t' && b != '\n' && b != '\r' {
			return b, br.UnreadByte()
		}
	}
}

func parseArray(r io.Reader) ([]importRecord, []ImportError) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, []ImportError{{Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON array: %v", err)}}
	}
	var records []importRecord
	var errs []ImportError
	for i, item := range raw {
		rec, ierr := decodeRecord(i+1, item)
		if ierr != nil {
			errs = append(errs, *ierr)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func parseLines(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var errs []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, ierr := decodeRecord(lineNum, line)
		if ierr != nil {
			errs = append(errs, *ierr)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: lineNum + 1, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read input: %v", err)})
	}
	return records, errs
}

func decodeRecord(line int, data []byte) (importRecord, *ImportError) {
	var p project.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return importRecord{}, &ImportError{Line: line, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := p.Validate(); err != nil {
		return importRecord{}, &ImportError{Line: line, ID: p.ID, Code: "INVALID_RECORD", Message: err.Error()}
	}
	p.IsAIGenerated = false
	return importRecord{line: line, project: p}, nil
}
