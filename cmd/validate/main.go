package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/plotweaver/internal/storage"
	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <file.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		v := &FileValidator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// FileValidator checks one data file: the action catalog, the atom
// collection, the hierarchy table, or an opening.
type FileValidator struct {
	errors []string
}

func (v *FileValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("file must have .json extension: %s", baseName)
	}
	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidFilename(nameWithoutExt) {
		return fmt.Errorf("filename '%s' must be lowercase snake_case (e.g., lake_rivals.json, not lake-rivals.json or LakeRivals.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	v.errors = nil
	switch baseName {
	case storage.ActionsFile:
		var defs []action.Definition
		if err := strictDecode(data, &defs); err != nil {
			return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
		}
		v.validateActions(defs)
	case storage.AtomsFile:
		var atoms []*atom.Atom
		if err := strictDecode(data, &atoms); err != nil {
			return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
		}
		v.validateAtoms(atoms)
	case storage.HierarchiesFile:
		var ranks hierarchy.Ranks
		if err := strictDecode(data, &ranks); err != nil {
			return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
		}
		if _, err := hierarchy.New(ranks); err != nil {
			v.addError(err.Error())
		}
		for name := range ranks {
			v.validateIDFormat("hierarchy name", name)
		}
	default:
		var o story.Opening
		if err := strictDecode(data, &o); err != nil {
			return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
		}
		if err := o.Validate(); err != nil {
			v.addError(err.Error())
		}
		if strings.TrimSpace(o.Name) == "" {
			v.addError("opening name is required")
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *FileValidator) validateActions(defs []action.Definition) {
	for i := range defs {
		v.validateIDFormat("action name", defs[i].Name)
		if err := defs[i].Validate(); err != nil {
			v.addError(err.Error())
		}
	}
	// the catalog also resolves composite references and duplicates
	if len(v.errors) == 0 {
		if _, err := action.NewCatalog(defs); err != nil {
			v.addError(err.Error())
		}
	}
}

func (v *FileValidator) validateAtoms(atoms []*atom.Atom) {
	seen := make(map[string]bool, len(atoms))
	for _, a := range atoms {
		if err := a.Validate(); err != nil {
			v.addError(err.Error())
			continue
		}
		if seen[a.ID] {
			v.addError(fmt.Sprintf("duplicate atom id '%s'", a.ID))
		}
		seen[a.ID] = true
		for _, na := range a.NextActions {
			v.validateIDFormat(fmt.Sprintf("atom %s next action", a.ID), na.Action)
		}
	}
}

func (v *FileValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *FileValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func strictDecode(data []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidFilename(name string) bool {
	// Allow 'x.' prefix for experimental openings
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
