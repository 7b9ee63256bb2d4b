package services

import (
	"strconv"

	"github.com/google/uuid"
)

// chunkNamespace scopes content-addressed chunk ids.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/pdfqa/chunk"))

// ChunkID returns the record id for a chunk.
// The id is a UUIDv5 of source, ordinal and text, so re-ingesting identical
// content yields identical ids and overwrites instead of duplicating.
func ChunkID(source string, ordinal int, text string) string {
	name := source + "\x00" + strconv.Itoa(ordinal) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
