package presto

// ClientTypeSignature carries detailed information about an engine data
// type. Only the raw type name is consumed by this client; parameterized
// type arguments are passed through untouched.
type ClientTypeSignature struct {
	// RawType is the base type name (e.g., "varchar", "bigint", "array")
	RawType string `json:"rawType"`
}
