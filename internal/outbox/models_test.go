package outbox

import (
	"strings"
	"testing"
)

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusFailed, false},
		{StatusSent, true},
		{StatusDeadLettered, true},
	}

	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority(""); err != nil || p != PriorityNormal {
		t.Errorf("ParsePriority(\"\") = %v, %v, want Normal", p, err)
	}
	if p, err := ParsePriority("High"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(\"High\") = %v, %v, want High", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("Expected error for unknown priority")
	}
}

func TestDataRoundTrip(t *testing.T) {
	data := map[string]string{"orderId": "42", "deep_link": "app://orders/42"}

	encoded, err := EncodeData(data)
	if err != nil {
		t.Fatal(err)
	}
	if encoded == nil {
		t.Fatal("Expected non-nil encoded payload")
	}

	msg := &Message{Data: encoded}
	decoded, err := msg.DataMap()
	if err != nil {
		t.Fatal(err)
	}
	if decoded["orderId"] != "42" || decoded["deep_link"] != "app://orders/42" {
		t.Errorf("Decoded payload mismatch: %v", decoded)
	}
}

func TestEncodeDataEmptyIsNil(t *testing.T) {
	if encoded, _ := EncodeData(nil); encoded != nil {
		t.Errorf("EncodeData(nil) = %v, want nil", *encoded)
	}
	if encoded, _ := EncodeData(map[string]string{}); encoded != nil {
		t.Errorf("EncodeData(empty) = %v, want nil", *encoded)
	}
}

func TestDataMapInvalidJSON(t *testing.T) {
	bad := "{not json"
	msg := &Message{Data: &bad}
	if _, err := msg.DataMap(); err == nil {
		t.Error("Expected error for invalid data payload")
	}
}

func TestTagsRoundTrip(t *testing.T) {
	tags := []string{"campaign", "black-friday"}

	joined := JoinTags(tags)
	if joined != "campaign,black-friday" {
		t.Errorf("JoinTags = %q", joined)
	}

	split := SplitTags(joined)
	if len(split) != 2 || split[0] != "campaign" || split[1] != "black-friday" {
		t.Errorf("SplitTags = %v", split)
	}

	if SplitTags("") != nil {
		t.Error("SplitTags(\"\") should be nil")
	}
}

func TestTruncateError(t *testing.T) {
	short := "connection refused"
	if got := TruncateError(short); got != short {
		t.Errorf("TruncateError changed short message: %q", got)
	}

	long := strings.Repeat("x", MaxLastErrorLen+100)
	if got := TruncateError(long); len(got) != MaxLastErrorLen {
		t.Errorf("TruncateError length = %d, want %d", len(got), MaxLastErrorLen)
	}
}
