// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.pdfqa.
//
// Adapters:
//   - ConfigStore: TOML configuration in config.toml
//   - PromptStore: editable prompt templates in prompts/
package file
