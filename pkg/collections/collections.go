// Package collections derives vector collection names and chunk identifiers
// for ingested documents. Every document owns exactly one collection; the
// reserved prefix marks document collections so federated queries can tell
// them apart from anything else living in the same store.
package collections

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ReservedPrefix marks collections owned by the document store.
const ReservedPrefix = "doc"

// maxBaseLength caps the sanitized file name portion of a collection name.
const maxBaseLength = 30

// idPrefixLength is how many characters of the document ID are embedded in
// the collection name.
const idPrefixLength = 8

// Name derives the collection name for a document from its original file
// name and its document ID. The result is deterministic: the same inputs
// always produce the same name.
//
// The file name is sanitized by stripping the extension, lowercasing, and
// replacing anything outside [a-z0-9_] with an underscore, truncated to 30
// characters. The first 8 characters of the document ID disambiguate
// documents uploaded under the same file name.
func Name(originalName, documentID string) string {
	return fmt.Sprintf("%s_%s_%s", ReservedPrefix, SanitizeBase(originalName), idPrefix(documentID))
}

// SanitizeBase normalizes an original file name into the collection-safe
// base used by Name.
func SanitizeBase(originalName string) string {
	base := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	base = strings.ToLower(base)

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	s := b.String()
	if len(s) > maxBaseLength {
		s = s[:maxBaseLength]
	}
	return s
}

// IsDocumentCollection reports whether a collection name carries the
// reserved document prefix.
func IsDocumentCollection(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix+"_")
}

// BelongsTo reports whether a collection name was derived from the given
// document ID. Only the embedded ID prefix participates in the match, so
// the original file name does not need to be known.
func BelongsTo(collectionName, documentID string) bool {
	return IsDocumentCollection(collectionName) &&
		strings.HasSuffix(collectionName, "_"+idPrefix(documentID))
}

// ChunkID builds the deterministic chunk identifier for the index-th chunk
// of a document. Re-ingesting a document reproduces the same IDs, which
// keeps writes idempotent at the store level.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

func idPrefix(documentID string) string {
	if len(documentID) <= idPrefixLength {
		return documentID
	}
	return documentID[:idPrefixLength]
}
