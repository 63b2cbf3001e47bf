package bedrock

import (
	"github.com/siumai/siumai/registry"
)

// Compile-time assertion that Factory satisfies the registry's
// ProviderFactory interface without bedrock importing registry at runtime
// for anything other than this check.
var _ registry.ProviderFactory = (*Factory)(nil)
