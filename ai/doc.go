// Package ai defines the embedding interface the pipeline consumes and its
// configuration. Concrete implementations (OpenAI-compatible services) live
// in subpackages so the pipeline never depends on a specific backend.
package ai
