package protocol

import "testing"

func TestSlotSettingsValid(t *testing.T) {
	cases := []struct {
		s    SlotSettings
		want bool
	}{
		{SlotSettings{BaseTTL: 1, TimeoutMS: 1}, true},
		{SlotSettings{BaseTTL: 0, TimeoutMS: 1}, false},
		{SlotSettings{BaseTTL: 1, TimeoutMS: 0}, false},
		{SlotSettings{}, false},
	}
	for _, c := range cases {
		if got := c.s.Valid(); got != c.want {
			t.Errorf("SlotSettings(%+v).Valid() = %v, want %v", c.s, got, c.want)
		}
	}
}

func TestSlotSettingsZero(t *testing.T) {
	if !(SlotSettings{}).Zero() {
		t.Error("expected zero value settings to report Zero() == true")
	}
	if (SlotSettings{BaseTTL: 1}).Zero() {
		t.Error("expected non-zero BaseTTL to report Zero() == false")
	}
}

func TestMessageClassString(t *testing.T) {
	if RegisterRequest.String() != "REGISTER_REQUEST" {
		t.Errorf("unexpected name: %s", RegisterRequest.String())
	}
	if got := MessageClass(999).String(); got == "" {
		t.Error("expected non-empty fallback name for unknown class")
	}
}

func TestActionOnFailureString(t *testing.T) {
	if ResetOnly.String() != "RESET_ONLY" {
		t.Errorf("unexpected name: %s", ResetOnly.String())
	}
	if KillAll.String() != "KILL_ALL" {
		t.Errorf("unexpected name: %s", KillAll.String())
	}
}
