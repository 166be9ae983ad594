package domain

// IndexSpec declares an equality index: Name is how queries address it,
// Key is the top-level document field it projects.
type IndexSpec struct {
	Name string `json:"name" msgpack:"name"`
	Key  string `json:"key" msgpack:"key"`
}
