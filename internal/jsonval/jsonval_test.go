package jsonval

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDecodeKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"null", `null`, KindNull},
		{"true", `true`, KindBool},
		{"integer", `42`, KindInt},
		{"negative integer", `-7`, KindInt},
		{"float", `3.5`, KindFloat},
		{"exponent is float", `1e3`, KindFloat},
		{"integral float literal", `2.0`, KindFloat},
		{"string", `"hello"`, KindString},
		{"array", `[1,2,3]`, KindArray},
		{"object", `{"a":1}`, KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.input, err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("Decode(%q) kind = %v, want %v", tt.input, v.Kind(), tt.kind)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, input := range []string{``, `{`, `[1,`, `"unterminated`, `{"a":1}garbage`} {
		if _, err := Decode([]byte(input)); err == nil {
			t.Errorf("Decode(%q) expected error, got nil", input)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []string{
		`null`,
		`true`,
		`false`,
		`42`,
		`-9007199254740993`,
		`3.25`,
		`"with \"quotes\" and \n newline"`,
		`[]`,
		`[1,"two",[3,null],{"four":4.5}]`,
		`{}`,
		`{"nested":{"deep":{"list":[true,false]}},"top":"level"}`,
	}

	for _, input := range tests {
		v, err := Decode([]byte(input))
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", input, err)
		}
		again, err := Decode(v.Encode())
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) error: %v", input, err)
		}
		if !v.Equal(again) {
			t.Errorf("round trip of %q: got %s, want %s", input, again, v)
		}
	}
}

func TestCanonicalEncodingSortsKeys(t *testing.T) {
	v, err := Decode([]byte(`{"zebra":1,"apple":2,"mango":3}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	want := `{"apple":2,"mango":3,"zebra":1}`
	if got := string(v.Encode()); got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	a, _ := Decode([]byte(`{"x":1,"y":[1,2]}`))
	b, _ := Decode([]byte(`{"y":[1,2],"x":1}`))
	if !a.Equal(b) {
		t.Errorf("values with reordered keys should be equal")
	}

	c, _ := Decode([]byte(`{"x":1,"y":[2,1]}`))
	if a.Equal(c) {
		t.Errorf("values with reordered array elements should not be equal")
	}
}

func TestIntOverflowFallsBackToFloat(t *testing.T) {
	// One past MaxInt64.
	v, err := Decode([]byte(`9223372036854775808`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if v.Kind() != KindFloat {
		t.Errorf("overflowing integer literal kind = %v, want KindFloat", v.Kind())
	}
}

func TestFloatRangeOverflowYieldsInf(t *testing.T) {
	v, err := Decode([]byte(`1e999`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if v.Kind() != KindFloat {
		t.Fatalf("kind = %v, want KindFloat", v.Kind())
	}
	if !math.IsInf(v.Float(), 1) {
		t.Errorf("Float() = %v, want +Inf", v.Float())
	}

	v, err = Decode([]byte(`-1e999`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !math.IsInf(v.Float(), -1) {
		t.Errorf("Float() = %v, want -Inf", v.Float())
	}
}

func TestCoercionAccessors(t *testing.T) {
	obj, err := Decode([]byte(`{"name":"bash","count":3,"ratio":0.5,"on":true,"items":[10,20]}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if got := obj.Key("name").Str(); got != "bash" {
		t.Errorf("Str() = %q, want %q", got, "bash")
	}
	if got := obj.Key("count").Int(); got != 3 {
		t.Errorf("Int() = %d, want 3", got)
	}
	if got := obj.Key("count").Float(); got != 3.0 {
		t.Errorf("Float() on int = %v, want 3.0", got)
	}
	if got := obj.Key("ratio").Float(); got != 0.5 {
		t.Errorf("Float() = %v, want 0.5", got)
	}
	if !obj.Key("on").Bool() {
		t.Errorf("Bool() = false, want true")
	}
	if got := obj.Key("items").Index(1).Int(); got != 20 {
		t.Errorf("Index(1).Int() = %d, want 20", got)
	}

	// Mismatches yield zero values, never errors.
	if got := obj.Key("count").Str(); got != "" {
		t.Errorf("Str() on int = %q, want empty", got)
	}
	if got := obj.Key("name").Int(); got != 0 {
		t.Errorf("Int() on string = %d, want 0", got)
	}
	if obj.Key("missing").Kind() != KindNull {
		t.Errorf("Key() on absent field should be null")
	}
	if obj.Key("items").Index(99).Kind() != KindNull {
		t.Errorf("Index() out of range should be null")
	}
	if got := Null().Key("anything"); got.Kind() != KindNull {
		t.Errorf("Key() on non-object should be null")
	}
}

func TestHasDistinguishesNullFromAbsent(t *testing.T) {
	obj, _ := Decode([]byte(`{"present":null}`))
	if !obj.Has("present") {
		t.Errorf("Has(present) = false, want true")
	}
	if obj.Has("absent") {
		t.Errorf("Has(absent) = true, want false")
	}
}

func TestMarshalerInsideStruct(t *testing.T) {
	type wire struct {
		Name  string `json:"name"`
		Input Value  `json:"input"`
	}

	var w wire
	if err := json.Unmarshal([]byte(`{"name":"Bash","input":{"command":"ls -la"}}`), &w); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got := w.Input.Key("command").Str(); got != "ls -la" {
		t.Errorf("nested Value = %q, want %q", got, "ls -la")
	}

	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var again wire
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-Unmarshal error: %v", err)
	}
	if !w.Input.Equal(again.Input) {
		t.Errorf("Value did not survive struct round trip: %s vs %s", w.Input, again.Input)
	}
}

func TestConstructorsMatchDecoded(t *testing.T) {
	built := Object(map[string]Value{
		"cmd":  String("go test"),
		"args": Array(String("-run"), String("TestFoo")),
		"n":    Int(2),
	})
	decoded, err := Decode([]byte(`{"cmd":"go test","args":["-run","TestFoo"],"n":2}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !built.Equal(decoded) {
		t.Errorf("constructed value %s != decoded value %s", built, decoded)
	}
}
