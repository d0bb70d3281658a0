// internal/app/system/limits/limits.go
package limits

// Validation bounds for chat entities. These mirror the schema constraints
// enforced by the stores, so both layers reject the same inputs.
const (
	// MaxGroupNameLen bounds the trimmed group name.
	MaxGroupNameLen = 100

	// MaxGroupDescriptionLen bounds the optional group description.
	MaxGroupDescriptionLen = 500

	// MaxGroupMembers bounds the member set of a single group.
	MaxGroupMembers = 256

	// MaxMessageTextLen bounds the text of a single message.
	MaxMessageTextLen = 5000

	// MaxRequestBodySize caps JSON request bodies. Image payloads ride in
	// the body as data URIs, so this is generous.
	MaxRequestBodySize = 8 << 20 // 8 MB

	// MaxImagePayloadSize caps an inline image payload before upload.
	MaxImagePayloadSize = 5 << 20 // 5 MB
)
