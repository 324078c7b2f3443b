// Package schema reduces arbitrary client-supplied JSON Schema (OpenAPI
// style, possibly with $ref/$defs/anyOf/oneOf/allOf) to the restricted
// subset the direct backend accepts for function parameters.
//
// Sanitize is best-effort: a malformed sub-schema is left in its last valid
// state and the walk continues rather than failing the whole request, the
// same recovery posture the teacher applies to corrupted tool schemas in
// proxy/transform.go's RestoreCorruptedToolSchema.
package schema

import "reflect"

// maxDepth bounds recursion; beyond it a node is replaced with an empty
// object rather than walked further.
const maxDepth = 20

// droppedKeys are stripped unconditionally at every depth.
var droppedKeys = map[string]bool{
	"$schema":              true,
	"$defs":                true,
	"definitions":          true,
	"additionalProperties": false, // handled specially, see sanitizeAdditionalProperties
	"patternProperties":    true,
	"examples":             true,
	"deprecated":           true,
	"readOnly":             true,
	"writeOnly":            true,
	"title":                true,
}

var supportedTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

// combinatorAliases maps the snake_case spellings some clients send to the
// camelCase keywords JSON Schema and the upstream actually use.
var combinatorAliases = map[string]string{
	"any_of": "anyOf",
	"one_of": "oneOf",
	"all_of": "allOf",
}

// Sanitize reduces an arbitrary JSON-Schema-shaped value to the
// upstream-accepted subset described in spec §4.A. Sanitize is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x). It never returns an error; failures
// degrade to an empty object schema.
func Sanitize(s map[string]interface{}) map[string]interface{} {
	seen := make(map[uintptr]bool)
	return sanitizeNode(s, s, 0, seen)
}

// sanitizeNode walks one schema node. root is the nearest enclosing node
// that carries $defs/definitions, used to resolve local $ref.
func sanitizeNode(node map[string]interface{}, root map[string]interface{}, depth int, seen map[uintptr]bool) map[string]interface{} {
	if node == nil {
		return map[string]interface{}{}
	}
	if depth > maxDepth {
		return map[string]interface{}{}
	}
	if id := mapIdentity(node); id != 0 {
		if seen[id] {
			return map[string]interface{}{}
		}
		seen[id] = true
		defer delete(seen, id)
	}

	// A node carrying its own $defs/definitions becomes the resolution root
	// for $ref inside it (nested local definitions shadow the outer ones).
	localRoot := root
	if _, ok := node["$defs"]; ok {
		localRoot = node
	} else if _, ok := node["definitions"]; ok {
		localRoot = node
	}

	if ref, ok := node["$ref"].(string); ok {
		target := resolveRef(ref, localRoot)
		if target == nil {
			return map[string]interface{}{}
		}
		return sanitizeNode(target, localRoot, depth+1, seen)
	}

	out := make(map[string]interface{}, len(node))
	for k, v := range node {
		if k == "$ref" || k == "$defs" || k == "definitions" {
			continue
		}
		if droppedKeys[k] {
			continue
		}
		if camel, isAlias := combinatorAliases[k]; isAlias {
			k = camel
		}
		out[k] = v
	}

	for _, combKey := range []string{"anyOf", "oneOf", "allOf"} {
		if raw, ok := out[combKey]; ok {
			collapsed, ok2 := sanitizeCombinator(raw, localRoot, depth, seen)
			delete(out, combKey)
			if ok2 {
				return collapsed
			}
		}
	}

	if constVal, ok := out["const"]; ok {
		out["enum"] = []interface{}{constVal}
		delete(out, "const")
	}

	sanitizeEnumGuard(out)
	sanitizeType(out)
	sanitizeNumericConstraints(out)
	sanitizeAdditionalProperties(out, localRoot, depth, seen)

	if props, ok := out["properties"].(map[string]interface{}); ok {
		sanitized := make(map[string]interface{}, len(props))
		for name, rawProp := range props {
			propMap, ok := asObject(rawProp)
			if !ok {
				sanitized[name] = map[string]interface{}{}
				continue
			}
			sanitized[name] = sanitizeNode(propMap, localRoot, depth+1, seen)
		}
		out["properties"] = sanitized
	}

	if items, ok := out["items"]; ok {
		if itemsMap, ok := asObject(items); ok {
			out["items"] = sanitizeNode(itemsMap, localRoot, depth+1, seen)
		}
	}

	if _, hasType := out["type"]; !hasType {
		inferType(out)
	}

	return out
}

// sanitizeCombinator applies the anyOf/oneOf/allOf collapse rule: drop
// null-only branches, coerce empty-object branches, sanitize the rest, then
// pick one branch to replace the whole node. Returns (branch, true) when a
// branch was selected.
func sanitizeCombinator(raw interface{}, root map[string]interface{}, depth int, seen map[uintptr]bool) (map[string]interface{}, bool) {
	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return nil, false
	}

	var branches []map[string]interface{}
	for _, rawBranch := range arr {
		branchMap, ok := asObject(rawBranch)
		if !ok {
			continue
		}
		if isNullOnlyBranch(branchMap) {
			continue
		}
		if len(branchMap) == 0 {
			branchMap = map[string]interface{}{"type": "object"}
		}
		branches = append(branches, sanitizeNode(branchMap, root, depth+1, seen))
	}

	if len(branches) == 0 {
		return map[string]interface{}{"type": "object"}, true
	}

	for _, b := range branches {
		if t, _ := b["type"].(string); t == "object" {
			return b, true
		}
	}
	return branches[0], true
}

func isNullOnlyBranch(b map[string]interface{}) bool {
	if t, ok := b["type"].(string); ok && t == "null" {
		return true
	}
	if enumVal, ok := b["enum"].([]interface{}); ok {
		if len(enumVal) == 1 && enumVal[0] == nil {
			return true
		}
	}
	return false
}

// sanitizeEnumGuard removes "enum" unless the node's declared type is
// exactly "string" (strict scalar equality, not a union membership check).
func sanitizeEnumGuard(node map[string]interface{}) {
	if _, ok := node["enum"]; !ok {
		return
	}
	t, _ := node["type"].(string)
	if t != "string" {
		delete(node, "enum")
	}
}

// sanitizeType restricts "type" to the supported scalar/object/array set,
// turning a list of types into an anyOf of single-type branches.
func sanitizeType(node map[string]interface{}) {
	raw, ok := node["type"]
	if !ok {
		return
	}
	switch t := raw.(type) {
	case string:
		if !supportedTypes[t] {
			delete(node, "type")
		}
	case []interface{}:
		var kept []interface{}
		for _, item := range t {
			if s, ok := item.(string); ok && supportedTypes[s] {
				kept = append(kept, map[string]interface{}{"type": s})
			}
		}
		delete(node, "type")
		if len(kept) == 1 {
			if m, ok := kept[0].(map[string]interface{}); ok {
				node["type"] = m["type"]
			}
		} else if len(kept) > 1 {
			node["anyOf"] = kept
		}
	default:
		delete(node, "type")
	}
}

// inferType fills in a missing "type" from structural hints, per spec.
func inferType(node map[string]interface{}) {
	if _, ok := node["properties"]; ok {
		node["type"] = "object"
		return
	}
	if _, ok := node["required"]; ok {
		node["type"] = "object"
		return
	}
	if _, ok := node["items"]; ok {
		node["type"] = "array"
		return
	}
	if _, ok := node["prefixItems"]; ok {
		node["type"] = "array"
	}
}

// sanitizeNumericConstraints coerces numeric keywords and drops the
// exclusive-bound variants the upstream does not understand.
func sanitizeNumericConstraints(node map[string]interface{}) {
	delete(node, "exclusiveMinimum")
	delete(node, "exclusiveMaximum")
	for _, key := range []string{"minimum", "maximum", "minLength", "maxLength", "minItems", "maxItems"} {
		if v, ok := node[key]; ok {
			if _, isNum := toFloat(v); !isNum {
				delete(node, key)
			}
		}
	}
}

// sanitizeAdditionalProperties keeps booleans as-is, recurses into object
// form, and coerces anything else to false.
func sanitizeAdditionalProperties(node map[string]interface{}, root map[string]interface{}, depth int, seen map[uintptr]bool) {
	raw, ok := node["additionalProperties"]
	if !ok {
		return
	}
	switch v := raw.(type) {
	case bool:
		node["additionalProperties"] = v
	case map[string]interface{}:
		node["additionalProperties"] = sanitizeNode(v, root, depth+1, seen)
	default:
		node["additionalProperties"] = false
	}
}

func resolveRef(ref string, root map[string]interface{}) map[string]interface{} {
	name, container, ok := splitLocalRef(ref)
	if !ok {
		return nil
	}
	defs, ok := asObject(root[container])
	if !ok {
		return nil
	}
	target, ok := asObject(defs[name])
	if !ok {
		return nil
	}
	return target
}

// splitLocalRef parses "#/$defs/NAME" or "#/definitions/NAME". Anything
// else (external refs, malformed pointers) is reported as unresolvable.
func splitLocalRef(ref string) (name string, container string, ok bool) {
	const defsPrefix = "#/$defs/"
	const definitionsPrefix = "#/definitions/"
	switch {
	case hasPrefix(ref, defsPrefix):
		return ref[len(defsPrefix):], "$defs", true
	case hasPrefix(ref, definitionsPrefix):
		return ref[len(definitionsPrefix):], "definitions", true
	default:
		return "", "", false
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// mapIdentity returns the map header's runtime pointer so the walk can
// detect a node that refers back to itself (a cyclic $ref chain). An empty
// map has nothing pointing into it yet, so it's reported as identity-less.
func mapIdentity(m map[string]interface{}) uintptr {
	if len(m) == 0 {
		return 0
	}
	return reflect.ValueOf(m).Pointer()
}
