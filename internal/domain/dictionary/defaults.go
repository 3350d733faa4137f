package dictionary

import _ "embed"

// Default dictionary distilled from the geriatric assessment export this
// service was built against. The assessment vocabulary is Hebrew; diagnosis
// keywords are English because the diagnosis table is.
//
//go:embed cfs_dictionary.json
var defaultDictionary []byte
