package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		data string
		want Action
	}{
		{"approve_TX12345", Action{Verb: Approve, Target: "TX12345"}},
		{"reject_TX12345", Action{Verb: Reject, Target: "TX12345"}},
		{"reject_reason_TX12345_invalid_proof", Action{Verb: RejectReason, Target: "TX12345", Reason: "invalid_proof"}},
		{"reject_reason_TX12345_wrong_amount", Action{Verb: RejectReason, Target: "TX12345", Reason: "wrong_amount"}},
		{"history_0911000000", Action{Verb: History, Target: "0911000000"}},
		{"stats_0911000000", Action{Verb: Stats, Target: "0911000000"}},
		{"image_AgACAgQAAx0_file-1", Action{Verb: Image, Target: "AgACAgQAAx0_file-1"}},
		{"inspect_TX12345", Action{Verb: Inspect, Target: "TX12345"}},
		{"flag_TX12345", Action{Verb: Flag, Target: "TX12345"}},
		{"risk_TX12345", Action{Verb: Risk, Target: "TX12345"}},
		{"proof_ok_AgACAg", Action{Verb: ProofOK, Target: "AgACAg"}},
		{"proof_bad_AgACAg", Action{Verb: ProofBad, Target: "AgACAg"}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, err := Parse(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsUnknownData(t *testing.T) {
	for _, data := range []string{
		"",
		"approve",
		"approve_",
		"detonate_TX12345",
		"rejected_TX12345",
		"reject_reason_TX12345",
		"proof_TX12345",
	} {
		t.Run(data, func(t *testing.T) {
			_, err := Parse(data)
			assert.ErrorIs(t, err, ErrUnknown)
		})
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	actions := []Action{
		{Verb: Approve, Target: "TX1"},
		{Verb: RejectReason, Target: "TX1", Reason: "invalid_proof"},
		{Verb: Image, Target: "file_with_underscores"},
	}
	for _, a := range actions {
		got, err := Parse(a.Encode())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

// "reject_reason_..." must never decode as a plain reject with a mangled id.
func TestCompoundVerbIsNotShadowed(t *testing.T) {
	got, err := Parse("reject_reason_TX1_wrong_amount")
	require.NoError(t, err)
	assert.Equal(t, RejectReason, got.Verb)
	assert.Equal(t, "TX1", got.Target)
}
