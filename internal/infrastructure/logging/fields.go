package logging

// keyvals is an ordered set of log fields. Setting an existing key replaces
// its value in place, so a child logger can override a parent field without
// emitting the key twice.
type keyvals struct {
	keys   []string
	values map[string]interface{}
}

func newKeyvals(pairs ...interface{}) keyvals {
	var kv keyvals
	return kv.with(pairs...)
}

// with returns a copy of kv extended by pairs. Non-string keys and a trailing
// unpaired value are dropped.
func (kv keyvals) with(pairs ...interface{}) keyvals {
	next := keyvals{
		keys:   append(make([]string, 0, len(kv.keys)+len(pairs)/2), kv.keys...),
		values: make(map[string]interface{}, len(kv.keys)+len(pairs)/2),
	}
	for k, v := range kv.values {
		next.values[k] = v
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			continue
		}
		if _, exists := next.values[key]; !exists {
			next.keys = append(next.keys, key)
		}
		next.values[key] = pairs[i+1]
	}
	return next
}

// take removes key and returns its value.
func (kv keyvals) take(key string) (keyvals, interface{}, bool) {
	value, ok := kv.values[key]
	if !ok {
		return kv, nil, false
	}
	rest := keyvals{values: make(map[string]interface{}, len(kv.values))}
	for _, k := range kv.keys {
		if k != key {
			rest.keys = append(rest.keys, k)
			rest.values[k] = kv.values[k]
		}
	}
	return rest, value, true
}

func (kv keyvals) flat() []interface{} {
	out := make([]interface{}, 0, len(kv.keys)*2)
	for _, k := range kv.keys {
		out = append(out, k, kv.values[k])
	}
	return out
}
