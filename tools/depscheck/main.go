package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "project-hunter/server/"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under From, other than Except, from importing
// anything under a Deny prefix.
type rule struct {
	From   []string
	Except []string
	Deny   []string
}

var rules = []rule{
	{
		From: []string{"internal/vec", "internal/scene", "internal/interact", "internal/detect", "internal/validate", "internal/ground", "internal/pickup", "internal/items"},
		Deny: []string{"internal/session", "internal/sim", "internal/net", "internal/app", "internal/loot", "internal/lootdb", "internal/lootsys"},
	},
	{
		From: []string{"internal/loot", "internal/lootdb"},
		Deny: []string{"internal/ground", "internal/session", "internal/sim", "internal/net", "internal/app", "internal/lootsys", "logging"},
	},
	{
		From:   []string{"internal/"},
		Except: []string{"internal/app"},
		Deny:   []string{"internal/app", "logging/sinks"},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	packages, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if violations := check(packages, rules); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var packages []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return packages, nil
			}
			return nil, err
		}
		packages = append(packages, pkg)
	}
}

func check(packages []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range packages {
		from := strings.TrimPrefix(pkg.ImportPath, modulePath)
		for _, imp := range pkg.Imports {
			if !strings.HasPrefix(imp, modulePath) {
				continue
			}
			target := strings.TrimPrefix(imp, modulePath)
			if within(from, target) {
				continue
			}
			for _, r := range rules {
				if matches(from, r.From) && !matches(from, r.Except) && matches(target, r.Deny) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
					break
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

// matches reports whether path is one of prefixes or nested below one.
// A prefix ending in "/" matches anything under it.
func matches(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// within treats imports inside the importer's own subtree as local.
func within(from, target string) bool {
	return target == from || strings.HasPrefix(target, from+"/")
}
