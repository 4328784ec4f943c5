package bucket

// RebuildData rewrites a storage-schema'd data subtree into the externally
// presented form: mappings containing "_u" unwrap to their stored value,
// other mappings recurse with underscore-prefixed keys dropped (except
// "_id"), sequences recurse element-wise, and anything else passes through
// unchanged. Applying it to an already-rebuilt tree is a no-op.
func RebuildData(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if unwrapped, ok := v["_u"]; ok {
			return unwrapped
		}
		rebuilt := make(map[string]interface{}, len(v))
		for key, inner := range v {
			if len(key) > 0 && key[0] == '_' && key != "_id" {
				continue
			}
			rebuilt[key] = RebuildData(inner)
		}
		return rebuilt
	case []interface{}:
		rebuilt := make([]interface{}, len(v))
		for i, inner := range v {
			rebuilt[i] = RebuildData(inner)
		}
		return rebuilt
	default:
		return value
	}
}
