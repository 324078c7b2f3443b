package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_DropsUnsupportedKeys(t *testing.T) {
	in := map[string]interface{}{
		"type":        "object",
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "Thing",
		"description": "a thing",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
		},
	}
	out := Sanitize(in)
	assert.NotContains(t, out, "$schema")
	assert.NotContains(t, out, "title")
	assert.Equal(t, "object", out["type"])
	assert.Equal(t, "a thing", out["description"])
}

func TestSanitize_RefInlining(t *testing.T) {
	in := map[string]interface{}{
		"type": "object",
		"$defs": map[string]interface{}{
			"Name": map[string]interface{}{"type": "string"},
		},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"$ref": "#/$defs/Name"},
		},
	}
	out := Sanitize(in)
	assert.NotContains(t, out, "$defs")
	props := out["properties"].(map[string]interface{})
	name := props["name"].(map[string]interface{})
	assert.Equal(t, "string", name["type"])
}

func TestSanitize_UnresolvableRefBecomesEmptyObject(t *testing.T) {
	in := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"$ref": "#/$defs/Missing"},
		},
	}
	out := Sanitize(in)
	props := out["properties"].(map[string]interface{})
	x := props["x"].(map[string]interface{})
	assert.Empty(t, x)
}

func TestSanitize_CyclicRefDoesNotInfiniteLoop(t *testing.T) {
	defs := map[string]interface{}{}
	node := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"self": map[string]interface{}{"$ref": "#/$defs/Node"},
		},
	}
	defs["Node"] = node
	root := map[string]interface{}{
		"$ref":   "#/$defs/Node",
		"$defs":  defs,
	}
	require.NotPanics(t, func() {
		out := Sanitize(root)
		assert.Equal(t, "object", out["type"])
	})
}

func TestSanitize_AnyOfCollapsesToObjectBranch(t *testing.T) {
	in := map[string]interface{}{
		"any_of": []interface{}{
			map[string]interface{}{"type": "null"},
			map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		},
	}
	out := Sanitize(in)
	assert.Equal(t, "object", out["type"])
	assert.NotContains(t, out, "anyOf")
	assert.NotContains(t, out, "any_of")
}

func TestSanitize_AllNullBranchesBecomeObject(t *testing.T) {
	in := map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "null"},
		},
	}
	out := Sanitize(in)
	assert.Equal(t, "object", out["type"])
}

func TestSanitize_ConstBecomesSingletonEnum(t *testing.T) {
	in := map[string]interface{}{"type": "string", "const": "fixed"}
	out := Sanitize(in)
	assert.NotContains(t, out, "const")
	assert.Equal(t, []interface{}{"fixed"}, out["enum"])
}

func TestSanitize_EnumDroppedUnlessTypeIsString(t *testing.T) {
	in := map[string]interface{}{"type": "integer", "enum": []interface{}{1, 2, 3}}
	out := Sanitize(in)
	assert.NotContains(t, out, "enum")

	in2 := map[string]interface{}{"type": "string", "enum": []interface{}{"a", "b"}}
	out2 := Sanitize(in2)
	assert.Equal(t, []interface{}{"a", "b"}, out2["enum"])
}

func TestSanitize_UnsupportedTypeDropped(t *testing.T) {
	in := map[string]interface{}{"type": "null"}
	out := Sanitize(in)
	assert.NotContains(t, out, "type")
}

func TestSanitize_TypeListCollapsesToAnyOf(t *testing.T) {
	in := map[string]interface{}{"type": []interface{}{"string", "integer"}}
	out := Sanitize(in)
	anyOf, ok := out["anyOf"].([]interface{})
	require.True(t, ok)
	assert.Len(t, anyOf, 2)
}

func TestSanitize_TypeInferredFromProperties(t *testing.T) {
	in := map[string]interface{}{
		"properties": map[string]interface{}{
			"a": map[string]interface{}{"type": "string"},
		},
	}
	out := Sanitize(in)
	assert.Equal(t, "object", out["type"])
}

func TestSanitize_TypeInferredFromItems(t *testing.T) {
	in := map[string]interface{}{
		"items": map[string]interface{}{"type": "string"},
	}
	out := Sanitize(in)
	assert.Equal(t, "array", out["type"])
}

func TestSanitize_AdditionalPropertiesCoercion(t *testing.T) {
	in := map[string]interface{}{"type": "object", "additionalProperties": "yes"}
	out := Sanitize(in)
	assert.Equal(t, false, out["additionalProperties"])

	in2 := map[string]interface{}{"type": "object", "additionalProperties": true}
	out2 := Sanitize(in2)
	assert.Equal(t, true, out2["additionalProperties"])
}

func TestSanitize_ExclusiveBoundsDropped(t *testing.T) {
	in := map[string]interface{}{
		"type":             "integer",
		"exclusiveMinimum": 0,
		"minimum":          float64(1),
	}
	out := Sanitize(in)
	assert.NotContains(t, out, "exclusiveMinimum")
	assert.Equal(t, float64(1), out["minimum"])
}

func TestSanitize_DepthBoundTerminates(t *testing.T) {
	deep := map[string]interface{}{"type": "object"}
	cur := deep
	for i := 0; i < 40; i++ {
		next := map[string]interface{}{"type": "object"}
		cur["properties"] = map[string]interface{}{"child": next}
		cur = next
	}
	require.NotPanics(t, func() {
		Sanitize(deep)
	})
}

func TestSanitize_Idempotent(t *testing.T) {
	in := map[string]interface{}{
		"type":  "object",
		"title": "drop me",
		"anyOf": []interface{}{
			map[string]interface{}{"type": "null"},
			map[string]interface{}{"type": "string", "const": "x"},
		},
	}
	once := Sanitize(in)
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
}
