package settings

import "testing"

func TestDecodeFallsBackToDefaults(t *testing.T) {
	s, err := decode(map[string][]byte{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Enabled() {
		t.Error("default mode must be manual")
	}
	if s.SlotSelection != DefaultSlotSelection() {
		t.Errorf("got %+v", s.SlotSelection)
	}
}

func TestDecodeStoredValues(t *testing.T) {
	s, err := decode(map[string][]byte{
		keyOperatingMode: []byte(`"PRO"`),
		keySlotSelection: []byte(`{"slotsToOffer": 2, "timeoutMinutes": 45, "searchDays": 3, "strategy": "Variety"}`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Enabled() {
		t.Error("expected pro mode")
	}
	want := SlotSelection{
		SlotsToOffer:        2,
		TimeoutMinutes:      45,
		SearchDays:          3,
		Strategy:            StrategyVariety,
		SlotDurationMinutes: DefaultSlotDurationMinutes,
	}
	if s.SlotSelection != want {
		t.Errorf("got %+v, want %+v", s.SlotSelection, want)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := decode(map[string][]byte{keySlotSelection: []byte(`{`)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalizeClampsAndDefaults(t *testing.T) {
	got := SlotSelection{SlotsToOffer: 9, Strategy: "fastest"}.Normalize()
	if got.SlotsToOffer != 3 {
		t.Errorf("SlotsToOffer = %d, want 3", got.SlotsToOffer)
	}
	if got.Strategy != StrategyBalanced {
		t.Errorf("Strategy = %q, want balanced", got.Strategy)
	}
}
