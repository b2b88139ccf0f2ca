package presto

// Column describes one column of a query result set.
type Column struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the declared engine data type as a string
	Type string `json:"type"`

	// TypeSignature contains detailed type information
	TypeSignature ClientTypeSignature `json:"typeSignature"`
}
