package crm

import (
	"encoding/json"
	"testing"
)

func TestRelatedIDUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"bare integer", `7`, 7},
		{"expanded object", `{"value": 7, "name": "Acme"}`, 7},
		{"null", `null`, 0},
		{"object without value", `{"name": "Acme"}`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r RelatedID
			if err := json.Unmarshal([]byte(tc.in), &r); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if r.ID != tc.want {
				t.Fatalf("got %d, want %d", r.ID, tc.want)
			}
		})
	}
}

func TestRelatedIDRejectsGarbage(t *testing.T) {
	var r RelatedID
	if err := json.Unmarshal([]byte(`"seven"`), &r); err == nil {
		t.Fatal("expected error for non-id value")
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`1250.5`, 1250.5},
		{`"1250.5"`, 1250.5},
		{`""`, 0},
		{`null`, 0},
	}

	for _, tc := range cases {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if float64(f) != tc.want {
			t.Fatalf("unmarshal %s = %v, want %v", tc.in, float64(f), tc.want)
		}
	}
}

func TestDealDecodesBothReferenceShapes(t *testing.T) {
	raw := `{
		"id": 1,
		"title": "Acme rollout",
		"status": "open",
		"pipeline_id": 3,
		"stage_id": 37,
		"value": "9000",
		"person_id": {"value": 20},
		"org_id": 10,
		"user_id": {"value": 100}
	}`

	var d Deal
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatal(err)
	}
	if d.PersonID.ID != 20 || d.OrgID.ID != 10 {
		t.Fatalf("reference unwrap failed: person=%d org=%d", d.PersonID.ID, d.OrgID.ID)
	}
	if float64(d.Value) != 9000 {
		t.Fatalf("value = %v", float64(d.Value))
	}
	if d.Owner() != 100 {
		t.Fatalf("owner = %d", d.Owner())
	}
}

func TestPersonContactAccessors(t *testing.T) {
	person := Person{
		Emails: []ContactValue{{Value: ""}, {Value: "jane@acme.de"}},
		Phones: []ContactValue{{Value: "+4915112345678"}},
	}
	if got := person.PrimaryEmail(); got != "jane@acme.de" {
		t.Fatalf("PrimaryEmail = %q", got)
	}
	if got := person.PrimaryPhone(); got != "+4915112345678" {
		t.Fatalf("PrimaryPhone = %q", got)
	}

	empty := Person{}
	if empty.PrimaryEmail() != "" || empty.PrimaryPhone() != "" {
		t.Fatal("empty person must have empty contact values")
	}
}

func TestOrganizationOwnerPrefersOwnerID(t *testing.T) {
	org := Organization{OwnerID: RelatedID{ID: 5}, UserID: RelatedID{ID: 9}}
	if org.Owner() != 5 {
		t.Fatalf("owner = %d, want owner_id to win", org.Owner())
	}

	org = Organization{UserID: RelatedID{ID: 9}}
	if org.Owner() != 9 {
		t.Fatalf("owner = %d, want user_id fallback", org.Owner())
	}
}
