package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// embeddedPath finds absolute paths inside ffmpeg filter expressions such
// as subtitles=/data/a.ass:fontsdir=/data/fonts.
var embeddedPath = regexp.MustCompile(`(?:^|[=:'])(/[^:,'\s\]]+)`)

// Validator checks execution requests against the whitelist.
type Validator struct {
	config  *Config
	allowed []string
}

// NewValidator creates a Validator for a compiled config.
func NewValidator(config *Config) *Validator {
	allowed := []string{config.Security.SharedVolumePath}
	for _, d := range config.Security.ExtraAllowedDirs {
		allowed = append(allowed, filepath.Clean(d))
	}
	return &Validator{config: config, allowed: allowed}
}

// ValidateRequest applies, in order: whitelist, length limit, argument
// patterns, path rules for arguments and working dir, env whitelist.
func (v *Validator) ValidateRequest(req CommandRequest) error {
	cmd, ok := v.config.Command(req.Command)
	if !ok {
		return fmt.Errorf("command %s is not in whitelist", req.Command)
	}

	length := len(req.Command) + len(strings.Join(req.Args, " "))
	if length > v.config.Security.MaxCommandLength {
		return fmt.Errorf("command length (%d) exceeds maximum allowed (%d)", length, v.config.Security.MaxCommandLength)
	}

	for _, arg := range req.Args {
		if !slices.ContainsFunc(cmd.patterns, func(re *regexp.Regexp) bool { return re.MatchString(arg) }) {
			return fmt.Errorf("argument %q does not match any allowed pattern", arg)
		}
		if err := v.checkArgPaths(arg); err != nil {
			return err
		}
	}

	if req.WorkingDir != "" {
		if err := v.checkPath(req.WorkingDir); err != nil {
			return fmt.Errorf("invalid working directory: %w", err)
		}
	}

	for key := range req.Env {
		if !slices.Contains(cmd.EnvWhitelist, key) {
			return fmt.Errorf("environment variable %q is not in whitelist", key)
		}
	}
	return nil
}

func (v *Validator) checkArgPaths(arg string) error {
	if strings.Contains(arg, "..") {
		return fmt.Errorf("argument contains path traversal: %s", arg)
	}
	if strings.HasPrefix(arg, "/") {
		return v.checkPath(arg)
	}
	for _, m := range embeddedPath.FindAllStringSubmatch(arg, -1) {
		if err := v.checkPath(m[1]); err != nil {
			return err
		}
	}
	return nil
}

// checkPath rejects traversal and forbidden directories and requires the
// path to lie in the shared volume or an extra allowed directory.
func (v *Validator) checkPath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains '..': %s", path)
	}
	clean := filepath.Clean(path)
	for _, forbidden := range v.config.Security.ForbiddenPaths {
		if within(clean, filepath.Clean(forbidden)) {
			return fmt.Errorf("path is in forbidden directory %s: %s", forbidden, path)
		}
	}
	for _, dir := range v.allowed {
		if within(clean, dir) {
			return nil
		}
	}
	return fmt.Errorf("path must be within %s: %s", strings.Join(v.allowed, ", "), path)
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/")
}
