package core

import (
	"errors"
)

// Error classes for the asset pipeline. Callers wrap these with %w so
// consumers can branch on the class without matching message text.
var (
	// ErrAssetParse marks a malformed document: bad syntax, a missing
	// required field, or a wrong value type. The previous payload, if any,
	// stays in use.
	ErrAssetParse = errors.New("asset parse failure")

	// ErrAssetValidity marks a document that parsed but is semantically
	// inconsistent with its collaborators (property mismatch, texture
	// dimension mismatch). Recoverable; the consuming pass is skipped.
	ErrAssetValidity = errors.New("asset validity failure")

	// ErrMeshFormat marks an unsupported interchange variant or a missing
	// mandatory attribute. The import produces no partial mesh.
	ErrMeshFormat = errors.New("mesh format failure")

	// ErrAssetNotFound marks an asset ID the library cannot resolve.
	ErrAssetNotFound = errors.New("asset not found")
)
