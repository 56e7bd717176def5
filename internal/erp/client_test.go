package erp

import (
	"encoding/json"
	"testing"
)

func TestCondMarshalsAsTriple(t *testing.T) {
	cases := []struct {
		cond Cond
		want string
	}{
		{Eq("name", "Acme"), `["name","=","Acme"]`},
		{Eq("is_company", true), `["is_company","=",true]`},
		{In("active", true, false), `["active","in",[true,false]]`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.cond)
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != tc.want {
			t.Fatalf("got %s, want %s", raw, tc.want)
		}
	}
}

func TestRowID(t *testing.T) {
	// search_read rows come back through encoding/json, so ids arrive
	// as float64.
	if got := RowID(map[string]any{"id": float64(7)}); got != 7 {
		t.Fatalf("float64 id: got %d", got)
	}
	if got := RowID(map[string]any{"id": int64(8)}); got != 8 {
		t.Fatalf("int64 id: got %d", got)
	}
	if got := RowID(map[string]any{"name": "no id"}); got != 0 {
		t.Fatalf("missing id: got %d", got)
	}
}
