package driven

// ConfigStore is a flat key/value view of config.toml. Keys are dotted
// paths such as "embedding.provider". Typed getters return the zero value
// when the key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat also converts integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set updates the in-memory value and writes the file.
	Set(key string, value any) error
	Save() error
	Load() error
	Path() string
}
