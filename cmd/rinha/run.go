package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/driver"
	"rinha/interpreter-go/pkg/interpreter"
)

func (s *cliSession) runEntry(args []string) int {
	if len(args) > 1 {
		s.errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
		return 1
	}
	program, manifest, code := s.loadEntry(args, "run")
	if program == nil {
		return code
	}
	return s.executeProgram(program, manifest)
}

func (s *cliSession) runCheck(args []string) int {
	if len(args) > 1 {
		s.errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
		return 1
	}
	program, _, code := s.loadEntry(args, "check")
	if program == nil {
		return code
	}
	embedded := ast.CollectErrors(program.Expression)
	if len(embedded) == 0 {
		fmt.Fprintf(os.Stdout, "%s: ok (%d nodes)\n", program.Name, ast.Count(program.Expression))
		return 0
	}
	for _, node := range embedded {
		loc := node.Loc()
		if loc.Filename == "" {
			loc.Filename = program.Name
		}
		s.errorf("%s:%d: parse error: %s", loc.Filename, loc.Start, node.Message)
	}
	return 1
}

// loadEntry resolves args to a program. With no argument the manifest's
// first target is used; a single argument is a target name when the nearby
// manifest defines one, otherwise an AST file path.
func (s *cliSession) loadEntry(args []string, command string) (*ast.File, *driver.Manifest, int) {
	manifest, manifestErr := loadManifestFrom(".")
	if manifestErr != nil && !errors.Is(manifestErr, driver.ErrManifestNotFound) {
		if len(args) == 1 && looksLikeProgramPath(args[0]) {
			s.warnf("unable to load manifest (%v); falling back to direct file execution", manifestErr)
			manifest = nil
		} else {
			s.errorf("failed to load manifest: %v", manifestErr)
			return nil, nil, 1
		}
	}

	if len(args) == 0 {
		if manifest == nil {
			s.errorf("rinha %s requires a manifest target or AST file (%s not found)", command, driver.ManifestFileName)
			return nil, nil, 1
		}
		target, err := manifest.DefaultTarget()
		if err != nil {
			s.errorf("%v", err)
			return nil, nil, 1
		}
		return s.loadTarget(manifest, target)
	}

	candidate := args[0]
	if manifest != nil {
		if target, ok := manifest.FindTarget(candidate); ok && !looksLikeProgramPath(candidate) {
			return s.loadTarget(manifest, target)
		}
	}

	program, err := driver.LoadProgram(candidate)
	if err != nil {
		s.errorf("failed to load program: %v", err)
		return nil, nil, 1
	}
	return program, manifest, 0
}

func (s *cliSession) loadTarget(manifest *driver.Manifest, target *driver.TargetSpec) (*ast.File, *driver.Manifest, int) {
	cacheDir, err := driver.Home()
	if err != nil {
		s.errorf("%v", err)
		return nil, nil, 1
	}
	loader, err := driver.NewLoader(manifest, cacheDir)
	if err != nil {
		s.errorf("failed to read lockfile: %v", err)
		return nil, nil, 1
	}
	program, err := loader.LoadTarget(target)
	if err != nil {
		s.errorf("failed to load target %q: %v", target.OriginalName, err)
		return nil, nil, 1
	}
	s.logger.Info("loaded target", "target", target.Name, "program", program.Name)
	return program, manifest, 0
}

func (s *cliSession) executeProgram(program *ast.File, manifest *driver.Manifest) int {
	manifestDepth := 0
	if manifest != nil {
		manifestDepth = manifest.Interpreter.MaxCallDepth
	}
	depth, err := s.resolveMaxDepth(manifestDepth)
	if err != nil {
		s.errorf("%v", err)
		return 1
	}

	interp := interpreter.NewWithOptions(interpreter.Options{
		Stdout:       os.Stdout,
		MaxCallDepth: depth,
		Logger:       s.logger,
	})
	if _, err := interp.Run(program); err != nil {
		s.reportRuntimeError(err)
		return 1
	}
	return 0
}

func (s *cliSession) reportRuntimeError(err error) {
	rt, ok := interpreter.AsRuntimeError(err)
	if !ok {
		s.errorf("%v", err)
		return
	}
	s.errTag.Fprint(os.Stderr, "runtime error: ")
	fmt.Fprintln(os.Stderr, rt.Error())
	trace := rt.Trace
	hidden := 0
	if len(trace) > maxTraceFrames {
		hidden = len(trace) - maxTraceFrames
		trace = trace[:maxTraceFrames]
	}
	for _, name := range trace {
		fmt.Fprintf(os.Stderr, "  at %s\n", name)
	}
	if hidden > 0 {
		fmt.Fprintf(os.Stderr, "  ... %d more frames\n", hidden)
	}
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(path)
}

func looksLikeProgramPath(arg string) bool {
	if strings.HasSuffix(strings.ToLower(arg), ".json") {
		return true
	}
	return strings.ContainsRune(arg, filepath.Separator) || strings.ContainsRune(arg, '/')
}
