// Package provider resolves named provider profiles (spec.md §4.H/§6)
// into concrete Anthropic clients and per-tier model IDs, generalizing
// the teacher's single hardcoded Anthropic-only path into a swappable,
// config-driven set of profiles (direct API or AWS Bedrock).
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/autoforge/engine/pkg/models"
)

// Profile is one named provider configuration: how to reach the
// upstream LLM, and which concrete model ID backs each ModelTier.
type Profile struct {
	Name        string                        `json:"-"`
	Description string                        `json:"description"`
	UseBedrock  bool                          `json:"use_bedrock" mapstructure:"use_bedrock"`
	AWSRegion   string                        `json:"aws_region,omitempty" mapstructure:"aws_region"`
	AWSProfile  string                        `json:"aws_profile,omitempty" mapstructure:"aws_profile"`
	APIKeyEnv   string                        `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Endpoint    string                        `json:"endpoint,omitempty"`
	Timeout     time.Duration                 `json:"timeout,omitempty"`
	Models      map[models.ModelTier]string   `json:"models"`
	Env         map[string]string             `json:"env,omitempty"`
}

// ModelFor resolves role's tier to this profile's concrete model ID.
func (p Profile) ModelFor(role models.Role) (string, error) {
	tier := role.ModelTier()
	id, ok := p.Models[tier]
	if !ok {
		return "", fmt.Errorf("provider profile %q has no model configured for tier %q", p.Name, tier)
	}
	return id, nil
}

// NewClient builds an anthropic-sdk-go client for this profile, routing
// through AWS Bedrock when UseBedrock is set (credential chain resolved
// via aws-sdk-go-v2/config, cross-region inference translated by
// bedrock.WithLoadDefaultConfig), or the direct API otherwise.
func (p Profile) NewClient(ctx context.Context, apiKey string) (anthropic.Client, error) {
	opts := []option.RequestOption{}
	if p.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.Timeout))
	}
	if p.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(p.Endpoint))
	}

	if p.UseBedrock {
		awsCfgOpts := []func(*awsconfig.LoadOptions) error{}
		if p.AWSRegion != "" {
			awsCfgOpts = append(awsCfgOpts, awsconfig.WithRegion(p.AWSRegion))
		}
		if p.AWSProfile != "" {
			awsCfgOpts = append(awsCfgOpts, awsconfig.WithSharedConfigProfile(p.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, awsCfgOpts...))
		return anthropic.NewClient(opts...), nil
	}

	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return anthropic.NewClient(opts...), nil
}

// TranslateModelForBedrock maps a direct-API model ID to the Bedrock
// cross-region inference-profile identifier a Bedrock-backed profile
// requires, following the teacher's own region-prefix convention.
func TranslateModelForBedrock(modelID, awsRegion string) string {
	prefix := "us"
	switch {
	case len(awsRegion) >= 2 && awsRegion[:2] == "eu":
		prefix = "eu"
	case len(awsRegion) >= 2 && awsRegion[:2] == "ap":
		prefix = "apac"
	}
	return fmt.Sprintf("%s.%s", prefix, modelID)
}
