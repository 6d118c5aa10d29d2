// Package action encodes and decodes the compact identifiers carried in the
// operator card's button callbacks. The wire form is "{verb}_{target}", with
// reject_reason additionally carrying a reason code after the target.
package action

import (
	"errors"
	"fmt"
	"strings"
)

type Verb string

const (
	Approve      Verb = "approve"
	Reject       Verb = "reject"
	RejectReason Verb = "reject_reason"
	History      Verb = "history"
	Stats        Verb = "stats"
	Image        Verb = "image"
	Inspect      Verb = "inspect"
	Flag         Verb = "flag"
	Risk         Verb = "risk"
	ProofOK      Verb = "proof_ok"
	ProofBad     Verb = "proof_bad"
)

// Longest verbs first so that "reject_reason_..." never parses as "reject".
var verbs = []Verb{
	RejectReason, ProofBad, ProofOK, Approve, Inspect, History,
	Reject, Stats, Image, Flag, Risk,
}

var ErrUnknown = errors.New("unknown action")

// Action is a decoded button press. Target is a transaction id for decision
// verbs, a phone number for history/stats, and a file id for image/proof
// verbs. Reason is only set for RejectReason.
type Action struct {
	Verb   Verb
	Target string
	Reason string
}

func (a Action) Encode() string {
	if a.Verb == RejectReason {
		return fmt.Sprintf("%s_%s_%s", RejectReason, a.Target, a.Reason)
	}
	return fmt.Sprintf("%s_%s", a.Verb, a.Target)
}

// Parse decodes callback data. Targets may themselves contain the delimiter
// (phone numbers do not, but free-form ids and file ids can), so everything
// after the verb prefix belongs to the target — except the reject_reason
// suffix, which is split off the front of the remainder because transaction
// ids never contain underscores while reason codes do.
func Parse(data string) (Action, error) {
	for _, v := range verbs {
		prefix := string(v) + "_"
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		rest := strings.TrimPrefix(data, prefix)
		if rest == "" {
			return Action{}, fmt.Errorf("%w: %q has no target", ErrUnknown, data)
		}
		a := Action{Verb: v, Target: rest}
		if v == RejectReason {
			parts := strings.SplitN(rest, "_", 2)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return Action{}, fmt.Errorf("%w: malformed reject_reason %q", ErrUnknown, data)
			}
			a.Target, a.Reason = parts[0], parts[1]
		}
		return a, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
}
