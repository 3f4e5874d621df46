package restpipe

// ParamKind is the discriminator tag for Param.
type ParamKind string

const (
	ParamID      ParamKind = "id"
	ParamVersion ParamKind = "version"
	ParamQuery   ParamKind = "query"
	ParamMethod  ParamKind = "method"
	ParamChild   ParamKind = "child"
)

// Param is a tagged union describing one path parameter of a call.
// ID params fill the positional {0}, {1}, ... tokens of a route
// template in declaration order; the other kinds are interpolated or
// appended by name.
type Param struct {
	Kind  ParamKind `json:"kind"`
	IDs   []string  `json:"ids,omitempty"`   // ParamID
	Key   string    `json:"key,omitempty"`   // ParamQuery
	Value string    `json:"value,omitempty"` // ParamVersion, ParamQuery, ParamMethod, ParamChild
}

// ID creates a positional identifier Param. Multiple ids fill
// consecutive positional tokens.
func ID(ids ...string) Param {
	return Param{Kind: ParamID, IDs: ids}
}

// Version creates a Param carrying the {ver} token value.
func Version(v string) Param {
	return Param{Kind: ParamVersion, Value: v}
}

// Query creates a query-string Param. Query params accumulate in the
// order given.
func Query(key, value string) Param {
	return Param{Kind: ParamQuery, Key: key, Value: value}
}

// Method creates a Param carrying an RPC-style method suffix
// (e.g. Gemini's ":streamGenerateContent").
func Method(name string) Param {
	return Param{Kind: ParamMethod, Value: name}
}

// Child creates a Param appending a sub-resource path segment.
func Child(path string) Param {
	return Param{Kind: ParamChild, Value: path}
}
