package build

import "errors"

// Sentinel errors classifying which part of the pipeline failed. They are
// always wrapped with context at the call site.
var (
	ErrHook      = errors.New("sitekit: lifecycle hook error")
	ErrDiscovery = errors.New("sitekit: collection discovery error")
	ErrLoad      = errors.New("sitekit: entry load error")
	ErrPrepare   = errors.New("sitekit: entry preparation error")
)
