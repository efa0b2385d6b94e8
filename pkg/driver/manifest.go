package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ManifestFileName = "rinha.yml"
	LockfileFileName = "rinha.lock"
)

// Manifest represents the parsed contents of rinha.yml.
type Manifest struct {
	Path        string
	Dir         string
	Name        string
	Interpreter InterpreterConfig
	Targets     map[string]*TargetSpec
	TargetOrder []string
	Sources     map[string]*SourceSpec
}

// InterpreterConfig holds evaluation limits. Zero means the built-in default.
type InterpreterConfig struct {
	MaxCallDepth int
}

// TargetSpec names a program entry point. Main is either a path relative to
// the manifest directory or "<source>:<path>" inside a declared source.
type TargetSpec struct {
	Name         string
	OriginalName string
	Main         string
}

// SourceSpec describes a git repository of AST programs.
type SourceSpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var (
	ErrManifestNotFound = errors.New("manifest: rinha.yml not found")
	ErrNoTargets        = errors.New("manifest: no targets defined")
)

// FindManifest walks up from start looking for rinha.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrManifestNotFound
		}
		dir = parent
	}
}

// LoadManifest parses rinha.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(raw); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate(raw manifestFile) error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Interpreter.MaxCallDepth < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("interpreter.max_call_depth must not be negative (got %d)", m.Interpreter.MaxCallDepth))
	}

	seen := make(map[string]string, len(raw.Targets.items))
	for _, item := range raw.Targets.items {
		original := strings.TrimSpace(item.name)
		key := sanitizeSegment(original)
		if other, exists := seen[key]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets %q and %q collide after sanitization", other, original))
			continue
		}
		seen[key] = original
		target := m.Targets[key]
		if target == nil || target.Main == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q requires a main entrypoint", original))
			continue
		}
		if source, _, ok := m.splitSourceMain(target.Main); ok {
			if _, declared := m.Sources[source]; !declared {
				errs.Issues = append(errs.Issues, fmt.Sprintf("target %q refers to undeclared source %q", original, source))
			}
		}
	}

	for name, src := range m.Sources {
		for _, issue := range src.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources.%s: %s", name, issue))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (s *SourceSpec) validate() []string {
	var issues []string
	if s == nil {
		return []string{"must be a mapping"}
	}
	if s.Git == "" {
		issues = append(issues, "git URL must be provided")
	}
	pins := 0
	for _, v := range []string{s.Rev, s.Tag, s.Branch} {
		if v != "" {
			pins++
		}
	}
	if pins == 0 {
		issues = append(issues, "must specify rev, tag, or branch")
	} else if pins > 1 {
		issues = append(issues, "rev, tag, and branch are mutually exclusive")
	}
	return issues
}

// Descriptor is the human-facing pin (rev, tag or branch).
func (s *SourceSpec) Descriptor() string {
	switch {
	case s.Rev != "":
		return s.Rev
	case s.Tag != "":
		return s.Tag
	default:
		return s.Branch
	}
}

// DefaultTarget returns the first target in manifest order.
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if m == nil || len(m.TargetOrder) == 0 {
		return nil, ErrNoTargets
	}
	return m.Targets[m.TargetOrder[0]], nil
}

// FindTarget looks up a target by sanitized or original name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	if m == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if target, ok := m.Targets[sanitizeSegment(name)]; ok && target != nil {
		return target, true
	}
	for _, key := range m.TargetOrder {
		if target := m.Targets[key]; target != nil && strings.EqualFold(target.OriginalName, name) {
			return target, true
		}
	}
	return nil, false
}

// splitSourceMain splits "<source>:<path>". Anything without a bare name
// before the colon is a path relative to the manifest.
func (m *Manifest) splitSourceMain(main string) (string, string, bool) {
	idx := strings.Index(main, ":")
	if idx <= 0 {
		return "", "", false
	}
	source := strings.TrimSpace(main[:idx])
	rest := strings.TrimSpace(main[idx+1:])
	if strings.ContainsAny(source, `/\.`) || rest == "" {
		return "", "", false
	}
	return sanitizeSegment(source), rest, true
}

type manifestFile struct {
	Name        string                 `yaml:"name"`
	Interpreter interpreterYAML        `yaml:"interpreter"`
	Targets     targetMap              `yaml:"targets"`
	Sources     map[string]*sourceYAML `yaml:"sources"`
}

type interpreterYAML struct {
	MaxCallDepth int `yaml:"max_call_depth"`
}

type targetYAML struct {
	Main string `yaml:"main"`
}

type sourceYAML struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name string
	spec *targetYAML
}

// UnmarshalYAML keeps targets in file order so the first one is the default.
// A bare string is shorthand for {main: <string>}.
func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}
		entry := new(targetYAML)
		if valueNode.Kind == yaml.ScalarNode {
			entry.Main = valueNode.Value
		} else if err := valueNode.Decode(entry); err != nil {
			return fmt.Errorf("manifest: target %q: %w", key, err)
		}
		items = append(items, targetMapEntry{name: key, spec: entry})
	}
	tm.items = items
	return nil
}

func (mf manifestFile) toManifest(path string) *Manifest {
	result := &Manifest{
		Path:        path,
		Dir:         filepath.Dir(path),
		Name:        sanitizeSegment(strings.TrimSpace(mf.Name)),
		Interpreter: InterpreterConfig{MaxCallDepth: mf.Interpreter.MaxCallDepth},
		Targets:     make(map[string]*TargetSpec, len(mf.Targets.items)),
		TargetOrder: make([]string, 0, len(mf.Targets.items)),
		Sources:     make(map[string]*SourceSpec, len(mf.Sources)),
	}
	for _, item := range mf.Targets.items {
		original := strings.TrimSpace(item.name)
		sanitized := sanitizeSegment(original)
		if _, exists := result.Targets[sanitized]; exists {
			continue
		}
		result.Targets[sanitized] = &TargetSpec{
			Name:         sanitized,
			OriginalName: original,
			Main:         strings.TrimSpace(item.spec.Main),
		}
		result.TargetOrder = append(result.TargetOrder, sanitized)
	}
	for name, src := range mf.Sources {
		name = sanitizeSegment(strings.TrimSpace(name))
		if src == nil {
			result.Sources[name] = nil
			continue
		}
		result.Sources[name] = &SourceSpec{
			Git:    strings.TrimSpace(src.Git),
			Rev:    strings.TrimSpace(src.Rev),
			Tag:    strings.TrimSpace(src.Tag),
			Branch: strings.TrimSpace(src.Branch),
		}
	}
	return result
}

// sanitizeSegment lowercases a name and folds anything outside [a-z0-9_]
// into underscores.
func sanitizeSegment(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SanitizePathSegment makes a revision descriptor safe to use as a directory
// name.
func SanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
