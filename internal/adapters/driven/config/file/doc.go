// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML settings at ~/.ragvis/config.toml
//   - PromptStore: editable answer templates under ~/.ragvis/prompts
package file
