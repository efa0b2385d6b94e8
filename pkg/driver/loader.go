package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rinha/interpreter-go/pkg/ast"
)

const (
	HomeEnvVar     = "RINHA_HOME"
	defaultHomeDir = ".rinha"
)

var ErrSourceNotInstalled = errors.New("loader: source not installed")

// Home returns the cache directory: $RINHA_HOME, else ~/.rinha.
func Home() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnvVar)); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("loader: locate home directory: %w", err)
	}
	return filepath.Join(home, defaultHomeDir), nil
}

// SourceDir is where a pinned source checkout lives inside the cache.
func SourceDir(cacheDir, name, version string) string {
	return filepath.Join(SourcesRoot(cacheDir, name), SanitizePathSegment(version))
}

// SourcesRoot holds every checkout of one source.
func SourcesRoot(cacheDir, name string) string {
	return filepath.Join(cacheDir, "sources", sanitizeSegment(name))
}

// LoadProgram reads and decodes one AST file. A program without a name takes
// the file's path.
func LoadProgram(path string) (*ast.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer file.Close()

	program, err := ast.DecodeFile(file)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if program.Name == "" {
		program.Name = path
	}
	return program, nil
}

// Loader resolves manifest targets to program files.
type Loader struct {
	Manifest *Manifest
	Lock     *Lockfile
	CacheDir string
}

// NewLoader loads the lockfile next to the manifest when one exists.
func NewLoader(manifest *Manifest, cacheDir string) (*Loader, error) {
	if manifest == nil {
		return nil, fmt.Errorf("loader: nil manifest")
	}
	loader := &Loader{Manifest: manifest, CacheDir: cacheDir}
	lockPath := filepath.Join(manifest.Dir, LockfileFileName)
	lock, err := LoadLockfile(lockPath)
	switch {
	case err == nil:
		loader.Lock = lock
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	return loader, nil
}

// ResolveMain maps a target to the program file on disk.
func (l *Loader) ResolveMain(target *TargetSpec) (string, error) {
	if target == nil {
		return "", fmt.Errorf("loader: nil target")
	}
	source, rel, ok := l.Manifest.splitSourceMain(target.Main)
	if !ok {
		main := target.Main
		if !filepath.IsAbs(main) {
			main = filepath.Join(l.Manifest.Dir, main)
		}
		return main, nil
	}
	if _, declared := l.Manifest.Sources[source]; !declared {
		return "", fmt.Errorf("loader: target %q refers to undeclared source %q", target.OriginalName, source)
	}
	pin, ok := l.Lock.Find(source)
	if !ok {
		return "", fmt.Errorf("%w: %s (run `rinha deps install`)", ErrSourceNotInstalled, source)
	}
	dir := SourceDir(l.CacheDir, source, pin.Version)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: %s missing at %s (run `rinha deps install`)", ErrSourceNotInstalled, source, dir)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("loader: target %q escapes source %q", target.OriginalName, source)
	}
	return filepath.Join(dir, cleaned), nil
}

// LoadTarget resolves and decodes a target's program.
func (l *Loader) LoadTarget(target *TargetSpec) (*ast.File, error) {
	path, err := l.ResolveMain(target)
	if err != nil {
		return nil, err
	}
	return LoadProgram(path)
}
