package annotate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Pyanalyze report ingestion. The report is a JSON array of failure
// records; the ones this engine consumes carry a suggested type for a
// parameter or return position plus the imports that type needs.

type reportEntry struct {
	AbsoluteFilename string         `json:"absolute_filename"`
	Lineno           *int           `json:"lineno"`
	ColOffset        *int           `json:"col_offset"`
	Code             string         `json:"code"`
	ExtraMetadata    *reportPayload `json:"extra_metadata"`
}

type reportPayload struct {
	SuggestedType *string  `json:"suggested_type"`
	Imports       []string `json:"imports"`
}

type suggestionKey struct {
	filename string
	line     int
	col      int
}

// Suggestion is one usable external type suggestion.
type Suggestion struct {
	Type    string
	Imports []string
}

// Suggestions holds the per-location suggestions of one report.
type Suggestions struct {
	byLoc map[suggestionKey]Suggestion
}

// LoadSuggestions reads a pyanalyze --json-report file. An unreadable or
// unparseable file is fatal; malformed individual entries are skipped with
// a debug log. Duplicate locations keep the first record.
func LoadSuggestions(path string, logger *zap.Logger) (*Suggestions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pyanalyze report: %w", err)
	}
	var entries []reportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse pyanalyze report: %w", err)
	}

	s := &Suggestions{byLoc: make(map[suggestionKey]Suggestion)}
	for i, e := range entries {
		if e.Lineno == nil || e.ColOffset == nil {
			logger.Debug("skipping report entry without position", zap.Int("index", i))
			continue
		}
		if e.Code != "suggested_parameter_type" && e.Code != "suggested_return_type" {
			continue
		}
		if e.ExtraMetadata == nil || e.ExtraMetadata.SuggestedType == nil || e.ExtraMetadata.Imports == nil {
			logger.Debug("skipping report entry without suggestion metadata",
				zap.Int("index", i), zap.String("code", e.Code))
			continue
		}
		key := suggestionKey{e.AbsoluteFilename, *e.Lineno, *e.ColOffset}
		if _, seen := s.byLoc[key]; seen {
			continue
		}
		s.byLoc[key] = Suggestion{
			Type:    *e.ExtraMetadata.SuggestedType,
			Imports: e.ExtraMetadata.Imports,
		}
	}
	return s, nil
}

// Len reports how many usable suggestions the report contained.
func (s *Suggestions) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byLoc)
}

// Lookup turns the suggestion at a source position into a verdict. When
// onlyWithoutImports is set, suggestions needing any import are discarded.
func (s *Suggestions) Lookup(filename string, line, col int, onlyWithoutImports bool) Verdict {
	if s == nil {
		return NoOpinion
	}
	sug, ok := s.byLoc[suggestionKey{filename, line, col}]
	if !ok {
		return NoOpinion
	}
	if onlyWithoutImports && len(sug.Imports) > 0 {
		return NoOpinion
	}
	t := TypeExpr{Code: sug.Type}
	for _, imp := range sug.Imports {
		if idx := strings.LastIndex(imp, "."); idx >= 0 {
			t.Imports = append(t.Imports, ImportRequirement{Module: imp[:idx], Name: imp[idx+1:]})
		} else {
			t.Imports = append(t.Imports, ImportRequirement{Module: imp})
		}
	}
	return Annotate(t)
}
