package crm

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RelatedID unwraps the CRM's two shapes for related-record references:
// a bare integer id, or an expanded object carrying {"value": <id>, ...}.
// The unwrap happens here at the system boundary only; the rest of the
// codebase sees a plain id.
type RelatedID struct {
	ID int64
}

// UnmarshalJSON accepts null, a number, or an object with a "value" key.
func (r *RelatedID) UnmarshalJSON(data []byte) error {
	r.ID = 0
	if string(data) == "null" {
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}

	var wrapped struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		r.ID = wrapped.Value
		return nil
	}

	return fmt.Errorf("crm: cannot unmarshal %s as related id", string(data))
}

// Present reports whether the reference points at a record.
func (r RelatedID) Present() bool { return r.ID > 0 }

// FlexFloat handles numeric CRM fields that arrive as either a JSON number
// or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	if string(data) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(parsed)
		return nil
	}

	return fmt.Errorf("crm: cannot unmarshal %s into FlexFloat", string(data))
}

// ContactValue is one entry of a labeled contact-detail list (emails, phones).
type ContactValue struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
	Label   string `json:"label"`
}

// firstValue returns the first non-empty entry of a contact-detail list.
func firstValue(list []ContactValue) string {
	for _, cv := range list {
		if cv.Value != "" {
			return cv.Value
		}
	}
	return ""
}

// Organization is a CRM organization record.
type Organization struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Website string    `json:"website"`
	Address string    `json:"address"`
	CcEmail string    `json:"cc_email"`
	OwnerID RelatedID `json:"owner_id"`
	UserID  RelatedID `json:"user_id"`

	// Language holds the value of the configured custom language field,
	// extracted by the client after decoding.
	Language string `json:"-"`
}

// Owner returns the owning user's id, preferring owner_id over user_id.
func (o *Organization) Owner() int64 {
	if o.OwnerID.Present() {
		return o.OwnerID.ID
	}
	return o.UserID.ID
}

// Person is a CRM person record.
type Person struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	OrgID    RelatedID      `json:"org_id"`
	Emails   []ContactValue `json:"email"`
	Phones   []ContactValue `json:"phone"`
	JobTitle string         `json:"job_title"`
	OwnerID  RelatedID      `json:"owner_id"`
	UserID   RelatedID      `json:"user_id"`

	Language string `json:"-"`
}

// Owner returns the owning user's id, preferring owner_id over user_id.
func (p *Person) Owner() int64 {
	if p.OwnerID.Present() {
		return p.OwnerID.ID
	}
	return p.UserID.ID
}

// PrimaryEmail returns the person's first email address, if any.
func (p *Person) PrimaryEmail() string { return firstValue(p.Emails) }

// PrimaryPhone returns the person's first phone number, if any.
func (p *Person) PrimaryPhone() string { return firstValue(p.Phones) }

// Deal is a CRM deal record.
type Deal struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	PipelineID        int64     `json:"pipeline_id"`
	StageID           int64     `json:"stage_id"`
	Value             FlexFloat `json:"value"`
	Probability       *float64  `json:"probability"`
	ExpectedCloseDate string    `json:"expected_close_date"`
	UserID            RelatedID `json:"user_id"`
	PersonID          RelatedID `json:"person_id"`
	OrgID             RelatedID `json:"org_id"`
}

// Owner returns the deal owner's user id.
func (d *Deal) Owner() int64 { return d.UserID.ID }

// NewContact carries the attributes for creating a CRM person.
type NewContact struct {
	Name     string
	OrgID    int64
	OwnerID  int64
	Email    string
	Phone    string
	JobTitle string
}

// ContactUpdate carries the attributes for a partial person update.
// Empty fields are left untouched.
type ContactUpdate struct {
	Email    string
	Phone    string
	JobTitle string
}
