package state

import (
	"testing"

	"github.com/ternarybob/caveo/internal/models"
)

var allStates = []models.State{
	models.StateIgnore,
	models.StateMonitor,
	models.StateTrack,
	models.StateTerminal,
}

func allFlagCombos() []models.ConditionFlags {
	combos := make([]models.ConditionFlags, 0, 16)
	for i := 0; i < 16; i++ {
		combos = append(combos, models.ConditionFlags{
			Condition1: i&1 != 0,
			Condition2: i&2 != 0,
			Condition3: i&4 != 0,
			Condition4: i&8 != 0,
		})
	}
	return combos
}

func input(prev models.State, c1, c2, c3, c4 bool) models.EvaluationInput {
	return models.EvaluationInput{
		InScope:           true,
		HasSufficientData: true,
		PrevState:         prev,
		Flags:             models.ConditionFlags{Condition1: c1, Condition2: c2, Condition3: c3, Condition4: c4},
	}
}

func TestNext_OutOfScopeAlwaysIgnores(t *testing.T) {
	for _, prev := range allStates {
		for _, flags := range allFlagCombos() {
			inp := models.EvaluationInput{InScope: false, HasSufficientData: true, PrevState: prev, Flags: flags}
			if got := Next(inp); got != models.StateIgnore {
				t.Errorf("Next(prev=%s, flags=%+v, out of scope) = %s, want IGNORE", prev, flags, got)
			}
		}
	}
}

func TestNext_InsufficientDataAlwaysMonitors(t *testing.T) {
	for _, prev := range allStates {
		for _, flags := range allFlagCombos() {
			inp := models.EvaluationInput{InScope: true, HasSufficientData: false, PrevState: prev, Flags: flags}
			if got := Next(inp); got != models.StateMonitor {
				t.Errorf("Next(prev=%s, flags=%+v, no data) = %s, want MONITOR", prev, flags, got)
			}
		}
	}
}

func TestNext_Condition1GateBlocksEverything(t *testing.T) {
	// With condition_1 false nothing escalates and nothing holds, prior
	// state included.
	for _, prev := range allStates {
		if got := Next(input(prev, false, true, true, true)); got != models.StateMonitor {
			t.Errorf("Next(prev=%s, c1=false, rest true) = %s, want MONITOR", prev, got)
		}
	}
}

func TestNext_MonitorTransitions(t *testing.T) {
	tests := []struct {
		name       string
		c2, c3, c4 bool
		expected   models.State
	}{
		{"c2 and c4 escalate", true, false, true, models.StateTrack},
		{"c2 c3 c4 still just track", true, true, true, models.StateTrack},
		{"c2 without c4 holds", true, false, false, models.StateMonitor},
		{"c4 without c2 holds", false, false, true, models.StateMonitor},
		{"c3 alone is irrelevant here", false, true, false, models.StateMonitor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(input(models.StateMonitor, true, tt.c2, tt.c3, tt.c4))
			if got != tt.expected {
				t.Errorf("Next = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestNext_TrackTransitions(t *testing.T) {
	if got := Next(input(models.StateTrack, true, true, true, true)); got != models.StateTerminal {
		t.Errorf("Next(TRACK, all flags) = %s, want TERMINAL", got)
	}
	if got := Next(input(models.StateTrack, true, true, false, true)); got != models.StateTrack {
		t.Errorf("Next(TRACK, c3=false) = %s, want TRACK", got)
	}
	// c2/c4 do not matter once tracking; only c3 escalates.
	if got := Next(input(models.StateTrack, true, false, true, false)); got != models.StateTerminal {
		t.Errorf("Next(TRACK, c3 only) = %s, want TERMINAL", got)
	}
}

func TestNext_TerminalIsAbsorbingPastTheGates(t *testing.T) {
	for _, flags := range allFlagCombos() {
		if !flags.Condition1 {
			continue
		}
		inp := models.EvaluationInput{InScope: true, HasSufficientData: true, PrevState: models.StateTerminal, Flags: flags}
		if got := Next(inp); got != models.StateTerminal {
			t.Errorf("Next(TERMINAL, flags=%+v) = %s, want TERMINAL", flags, got)
		}
	}
}

func TestNext_IgnoreReentersAtMonitor(t *testing.T) {
	// A previously out-of-scope company coming back in scope is treated
	// like a monitored one, including immediate escalation when the
	// flags warrant it.
	if got := Next(input(models.StateIgnore, true, true, false, true)); got != models.StateTrack {
		t.Errorf("Next(IGNORE, c1 c2 c4) = %s, want TRACK", got)
	}
	if got := Next(input(models.StateIgnore, true, false, false, false)); got != models.StateMonitor {
		t.Errorf("Next(IGNORE, c1 only) = %s, want MONITOR", got)
	}
}

func TestNext_UnknownPriorStateEntersAtMonitor(t *testing.T) {
	if got := Next(input(models.State("BOGUS"), true, false, false, false)); got != models.StateMonitor {
		t.Errorf("Next(unknown prev) = %s, want MONITOR", got)
	}
}

func TestNext_EscalationScenarios(t *testing.T) {
	// A company moving through the full lattice across cycles.
	s := models.DefaultState
	s = Next(input(s, true, true, false, true)) // monitored, spike + initiative
	if s != models.StateTrack {
		t.Fatalf("cycle 1 = %s, want TRACK", s)
	}
	s = Next(input(s, true, false, false, false)) // tracking holds without c3
	if s != models.StateTrack {
		t.Fatalf("cycle 2 = %s, want TRACK", s)
	}
	s = Next(input(s, true, false, true, false)) // burn persists
	if s != models.StateTerminal {
		t.Fatalf("cycle 3 = %s, want TERMINAL", s)
	}
	s = Next(input(s, true, true, true, true))
	if s != models.StateTerminal {
		t.Fatalf("cycle 4 = %s, want TERMINAL (absorbing)", s)
	}
}
