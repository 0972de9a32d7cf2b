package feed

import (
	"testing"
	"time"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		sessionID string
		want      string
	}{
		{"gym", "tempo.runs.gym.events"},
		{"gym.floor-2", "tempo.runs.gym_floor-2.events"},
		{"a*b>c d", "tempo.runs.a_b_c_d.events"},
		{"", "tempo.runs._.events"},
	}
	for _, tt := range tests {
		if got := Subject("tempo.runs", tt.sessionID); got != tt.want {
			t.Fatalf("Subject(%q): expected %q, got %q", tt.sessionID, tt.want, got)
		}
	}
}

func TestMsgIDIsScopedToSession(t *testing.T) {
	if MsgID("gym", "e1") == MsgID("pool", "e1") {
		t.Fatalf("expected equal event ids in different sessions to publish separately")
	}
}

func TestStreamConfigCoversEverySessionSubject(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	sc := p.streamConfig()
	if len(sc.Subjects) != 1 || sc.Subjects[0] != "tempo.runs.>" {
		t.Fatalf("unexpected subjects: %v", sc.Subjects)
	}
	if sc.Duplicates != 2*time.Hour {
		t.Fatalf("expected the duplicate window to be configured, got %v", sc.Duplicates)
	}

	changed := sc
	changed.MaxAge = time.Hour
	if isStreamConfigEqual(sc, changed) {
		t.Fatalf("expected a MaxAge change to require an update")
	}
	if !isStreamConfigEqual(sc, p.streamConfig()) {
		t.Fatalf("expected identical configs to compare equal")
	}
}
