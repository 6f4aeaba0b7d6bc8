package redisstream

// Stream entry fields.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldPayload    = "payload"    // raw bytes, no base64
	fieldProducedAt = "producedAt" // unix ns
	fieldMetaPrefix = "meta:"
)
