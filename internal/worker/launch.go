// Package worker is the worker abstraction (spec.md §4.C): launching a
// role-scoped subprocess, tracking its lifecycle, and exposing a
// sanitized, line-oriented output stream to the event multiplexer.
package worker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/autoforge/engine/internal/provider"
	"github.com/autoforge/engine/pkg/models"
)

// LaunchSpec describes one worker invocation before argv is composed.
type LaunchSpec struct {
	Entrypoint string // argv[0]: the worker implementation's interpreter/entrypoint.
	ProjectDir string
	Role       models.Role
	ModelID    string // resolved from the active provider profile by the caller.
	FeatureID  *int64
	FeatureIDs []int64 // batch mode; mutually exclusive with FeatureID.
	Yolo       bool
}

// BuildArgv composes the argv the launch contract (spec.md §6) requires.
func (l LaunchSpec) BuildArgv() []string {
	argv := []string{l.Entrypoint, "--project-dir", l.ProjectDir}
	if l.ModelID != "" {
		argv = append(argv, "--model", l.ModelID)
	}
	switch {
	case l.FeatureID != nil:
		argv = append(argv, "--feature-id", strconv.FormatInt(*l.FeatureID, 10))
	case len(l.FeatureIDs) > 0:
		ids := make([]string, len(l.FeatureIDs))
		for i, id := range l.FeatureIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		argv = append(argv, "--feature-ids", strings.Join(ids, ","))
	}
	if l.Yolo {
		argv = append(argv, "--yolo")
	}
	return argv
}

// BuildEnv composes the worker environment for the active provider
// profile (spec.md §6): base followed by one KEY=value entry per item of
// profile.Env. The profile's Endpoint, APIKeyEnv and Timeout fields are
// not translated into variables; only what profile.Env lists is added.
func BuildEnv(base []string, profile provider.Profile) []string {
	env := append([]string(nil), base...)
	for k, v := range profile.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// resolveModelID looks up role's tier in the active profile's model map.
func resolveModelID(role models.Role, profile provider.Profile) (string, error) {
	tier := role.ModelTier()
	id, ok := profile.Models[tier]
	if !ok {
		return "", fmt.Errorf("provider profile %q has no model for tier %q", profile.Name, tier)
	}
	return id, nil
}
