package sync

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestExternalKeyFormatsID(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{42, "42"},
		{9007199254740993, "9007199254740993"},
		{0, "0"},
	}
	for _, tc := range cases {
		if got := externalKey(tc.in); got != tc.want {
			t.Fatalf("externalKey(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// The external_id column is text, so the identity queries must bind a
// value the driver can encode as text in either wire format.
func TestExternalKeyEncodesAsTextParameter(t *testing.T) {
	m := pgtype.NewMap()
	for _, format := range []int16{pgtype.TextFormatCode, pgtype.BinaryFormatCode} {
		if _, err := m.Encode(pgtype.TextOID, format, externalKey(42), nil); err != nil {
			t.Fatalf("format %d: %v", format, err)
		}
	}
}
