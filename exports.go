package cadence

import "github.com/xraph/cadence/types"

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export amount helpers
var (
	RoundAmount  = types.RoundAmount
	ParseAmount  = types.ParseAmount
	FormatAmount = types.FormatAmount
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
