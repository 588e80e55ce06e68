package dedupe

// Package dedupe provides the shared singleflight group used to deduplicate
// concurrent character-sheet generation requests. A centralized
// singleflight.Group ensures only one generation job runs for a given key
// while other callers wait for the result.

import "golang.org/x/sync/singleflight"

// CharacterGroup deduplicates character-sheet generation keyed by the
// canonical (name, description) key.
var CharacterGroup singleflight.Group

// ImageGroup deduplicates portrait generation, keyed the same way as
// CharacterGroup but kept separate so a sheet and its portrait can generate
// concurrently.
var ImageGroup singleflight.Group
