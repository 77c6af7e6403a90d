// Package loader reads script documents from files.
//
// One file holds one document. The format is picked by extension:
//
//	.yaml, .yml  strict YAML (unknown fields are rejected)
//	.json        JSON, checked against document.schema.json first
//	.cue         CUE, must evaluate to a concrete value
//
// Files with any other extension are ignored, as are hidden directories.
// A document-level executor is inherited by scripts that do not name one, and
// a script without a created date inherits the document's.
package loader
