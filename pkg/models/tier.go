package models

// ModelTier is a provider-profile capability tier. A role declares the tier
// it requires; the active provider profile maps the tier to a concrete
// model id at worker launch.
type ModelTier string

const (
	ModelTierOpus   ModelTier = "opus"
	ModelTierSonnet ModelTier = "sonnet"
	ModelTierHaiku  ModelTier = "haiku"
)

// Valid returns true if the tier is a known value.
func (t ModelTier) Valid() bool {
	switch t {
	case ModelTierOpus, ModelTierSonnet, ModelTierHaiku:
		return true
	default:
		return false
	}
}
