package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"rinha/interpreter-go/pkg/driver"
)

func (s *cliSession) runDeps(args []string) int {
	if len(args) == 0 {
		s.errorf("rinha deps requires a subcommand (install)")
		return 1
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			s.errorf("rinha deps install does not take arguments (received %s)", strings.Join(args[1:], " "))
			return 1
		}
		return s.runDepsInstall()
	default:
		s.errorf("unknown deps subcommand %q", args[0])
		return 1
	}
}

func (s *cliSession) runDepsInstall() int {
	manifestPath, err := driver.FindManifest(".")
	if err != nil {
		s.errorf("unable to locate %s: %v", driver.ManifestFileName, err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		s.errorf("failed to read manifest: %v", err)
		return 1
	}
	cacheDir, err := driver.Home()
	if err != nil {
		s.errorf("failed to resolve %s: %v", driver.HomeEnvVar, err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Project: %s\n", manifest.Name)
	fmt.Fprintf(os.Stdout, "Sources: %d\n", len(manifest.Sources))
	fmt.Fprintf(os.Stdout, "Cache directory: %s\n", cacheDir)

	lockPath := filepath.Join(manifest.Dir, driver.LockfileFileName)
	lock, err := driver.LoadLockfile(lockPath)
	switch {
	case err == nil:
		if lock.Root != "" && lock.Root != manifest.Name {
			s.errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	default:
		s.errorf("failed to read lockfile: %v", err)
		return 1
	}

	installer := newSourceInstaller(manifest, cacheDir, s.logger)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		s.errorf("failed to install sources: %v", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}
	if !changed {
		fmt.Fprintf(os.Stdout, "Lockfile up to date: %s\n", lockPath)
		return 0
	}
	lock.Root = manifest.Name
	lock.Tool = cliToolVersion
	lock.Generated = ""
	if err := driver.WriteLockfile(lock, lockPath); err != nil {
		s.errorf("%v", err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", lockPath)
	return 0
}

// sourceInstaller pins manifest sources into the cache and the lockfile.
type sourceInstaller struct {
	manifest *driver.Manifest
	cacheDir string
	logger   *slog.Logger
}

func newSourceInstaller(manifest *driver.Manifest, cacheDir string, logger *slog.Logger) *sourceInstaller {
	if logger == nil {
		logger = slog.Default()
	}
	return &sourceInstaller{manifest: manifest, cacheDir: cacheDir, logger: logger}
}

// Install reconciles lock with the manifest. It reports whether the lock
// changed plus one human-readable line per source.
func (i *sourceInstaller) Install(lock *driver.Lockfile) (bool, []string, error) {
	names := make([]string, 0, len(i.manifest.Sources))
	for name := range i.manifest.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	var logs []string
	for _, name := range names {
		spec := i.manifest.Sources[name]
		if pin, ok := lock.Find(name); ok && i.pinSatisfies(name, pin, spec) {
			logs = append(logs, fmt.Sprintf("%s: locked at %s", name, pin.Version))
			continue
		}
		pin, err := i.fetch(name, spec)
		if err != nil {
			return false, nil, fmt.Errorf("source %q: %w", name, err)
		}
		lock.Upsert(pin)
		changed = true
		logs = append(logs, fmt.Sprintf("%s: installed %s", name, pin.Version))
	}

	kept := lock.Sources[:0]
	for _, pin := range lock.Sources {
		if _, ok := i.manifest.Sources[pin.Name]; ok {
			kept = append(kept, pin)
			continue
		}
		changed = true
		logs = append(logs, fmt.Sprintf("%s: removed from lockfile", pin.Name))
	}
	lock.Sources = kept
	return changed, logs, nil
}

// pinSatisfies reports whether an existing lock entry still matches the
// manifest and its checkout is present in the cache.
func (i *sourceInstaller) pinSatisfies(name string, pin *driver.LockedSource, spec *driver.SourceSpec) bool {
	if pin.Git != spec.Git {
		return false
	}
	descriptor := spec.Descriptor()
	if pin.Version != descriptor && !strings.HasPrefix(pin.Version, descriptor+"@") {
		return false
	}
	if _, err := os.Stat(driver.SourceDir(i.cacheDir, name, pin.Version)); err != nil {
		return false
	}
	return true
}

func (i *sourceInstaller) fetch(name string, spec *driver.SourceSpec) (*driver.LockedSource, error) {
	baseDir := driver.SourcesRoot(i.cacheDir, name)
	i.logger.Info("fetching source", "source", name, "git", spec.Git, "pin", spec.Descriptor())
	version, commit, err := ensureGitCheckout(baseDir, spec)
	if err != nil {
		return nil, err
	}
	checksum, err := dirChecksum(driver.SourceDir(i.cacheDir, name, version))
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}
	return &driver.LockedSource{
		Name:     name,
		Git:      spec.Git,
		Version:  version,
		Commit:   commit,
		Checksum: checksum,
	}, nil
}

// ensureGitCheckout clones url into a temporary directory, checks out the
// requested revision and moves the worktree to its pinned location.
func ensureGitCheckout(baseDir string, spec *driver.SourceSpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL: spec.Git,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, driver.SanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *driver.SourceSpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/remotes/origin/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git sources require rev, tag, or branch")
}

// dirChecksum hashes file names and contents under path, skipping .git.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
