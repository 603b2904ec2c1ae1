// Package casefile loads case content: rooms, objects, suspects, tasks, hints and the
// final exam answer key.
//
// Ownership boundary:
// - TOML decoding of case files
// - structural checks needed to run a session (start room, exits, exam answers)
// - the built-in demo case
//
// World graph validation beyond those checks, localization and rank scoring live
// outside this module.
package casefile
