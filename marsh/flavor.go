package marsh

// Flavor selects which of the four descriptor graphs a Walker builds for a
// given Go type: the pair (direction, wire form). Grounds the four
// json_into/json_from/binary_into/binary_from module families in
// vow/marsh/impl/.
type Flavor string

const (
	// JSONEncode builds descriptors turning Go values into the JSON tree
	// model ([]NamedValue / map[string]any / []any / scalars).
	JSONEncode Flavor = "json_into"
	// JSONDecode builds descriptors turning the JSON tree model back into
	// Go values.
	JSONDecode Flavor = "json_from"
	// BinaryEncode builds descriptors turning Go values into []byte.
	BinaryEncode Flavor = "binary_into"
	// BinaryDecode builds descriptors turning []byte into Go values
	// (typically via FramedValue[T] so leftover bytes are preserved).
	BinaryDecode Flavor = "binary_from"
)

// registryKey is the qualified name a Walker registers a type's descriptor
// under, matching walker.py's "flavor:qualified-name" cache key so that two
// requests for the same (flavor, type) converge on one Registry entry.
func registryKey(flavor Flavor, qualifiedName string) string {
	return string(flavor) + ":" + qualifiedName
}
