package domain

import "testing"

func TestInterruptedMessage(t *testing.T) {
	tests := []struct {
		recoverImmediately bool
		want               string
	}{
		{true, "Simulated crash"},
		{false, "Interrupted via the Golem API"},
	}

	for _, tt := range tests {
		err := Interrupted(tt.recoverImmediately)
		if got := err.Error(); got != tt.want {
			t.Fatalf("Interrupted(%v).Error() = %q, want %q", tt.recoverImmediately, got, tt.want)
		}
	}
}

func TestUnexpectedOplogEntryMessage(t *testing.T) {
	err := UnexpectedOplogEntry("EffectResult", "Invocation")
	want := "Unexpected oplog entry: expected EffectResult, got Invocation"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	original := Interrupted(true)
	s := SerializeAPIError(original)
	restored := s.ToAPIError()
	if restored.Error() != original.Error() {
		t.Fatalf("round trip mismatch: %q != %q", restored.Error(), original.Error())
	}
}

func TestInvalidShardIdNeverUserFacingKind(t *testing.T) {
	err := InvalidShardId(3, []uint32{0, 1, 2})
	if err.Code != CodeInternalError {
		t.Fatalf("expected InternalError envelope, got %s", err.Code)
	}
	if err.Worker.Kind != KindInvalidShardId {
		t.Fatalf("expected InvalidShardId kind, got %s", err.Worker.Kind)
	}
}
