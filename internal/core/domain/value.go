package domain

// ValueKind classifies what a stored payload decoded to. Older
// deployments wrote bare strings for some keys, so decoding must
// distinguish a structured record from a legacy raw value and from a
// payload that is simply unreadable.
type ValueKind int

const (
	// ValueStructured means the payload parsed as a full SessionRecord.
	ValueStructured ValueKind = iota

	// ValueRaw means the payload is a plain string (pointer and index
	// slots, or a legacy record written before structured storage).
	ValueRaw

	// ValueCorrupt means the payload looked structured but did not parse.
	ValueCorrupt
)

// StoredValue is the result of decoding a store payload. Decoding never
// fails; callers inspect Kind and decide whether corruption is treated
// as absence or as an error.
type StoredValue struct {
	Kind   ValueKind
	Record *SessionRecord
	Raw    string
}
