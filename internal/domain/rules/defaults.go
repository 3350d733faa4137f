package rules

import _ "embed"

// Default CFS 1-9 rule set. Rules evaluate in ascending priority order;
// the priority 99 entry is the always-true default.
//
//go:embed cfs_rules.json
var defaultRules []byte
