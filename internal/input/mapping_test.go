package input

import "testing"

func TestMappingTableLookupUnboundIsNone(t *testing.T) {
	m := NewMappingTable()
	if got := m.Lookup("front_touch_ul"); got != NONE {
		t.Errorf("Lookup(unbound) = %v, want NONE", got)
	}
}

func TestMappingTableBindAndLookup(t *testing.T) {
	m := NewMappingTable()
	m.Bind("btn_triangle", TRIANGLE)
	m.Bind("front_touch_center", CIRCLE)
	if got := m.Lookup("btn_triangle"); got != TRIANGLE {
		t.Errorf("Lookup(btn_triangle) = %v, want TRIANGLE", got)
	}
	if got := m.Lookup("front_touch_center"); got != CIRCLE {
		t.Errorf("Lookup(front_touch_center) = %v, want CIRCLE", got)
	}
}

func TestMappingTableAnalogTriggerSlots(t *testing.T) {
	m := NewMappingTable()
	m.SetAnalogTriggers("rear_touch_ll", "rear_touch_lr")
	if out, ok := m.IsAnalogTrigger("rear_touch_ll"); !ok || out != L2 {
		t.Errorf("IsAnalogTrigger(rear_touch_ll) = (%v,%v), want (L2,true)", out, ok)
	}
	if out, ok := m.IsAnalogTrigger("rear_touch_lr"); !ok || out != R2 {
		t.Errorf("IsAnalogTrigger(rear_touch_lr) = (%v,%v), want (R2,true)", out, ok)
	}
	if _, ok := m.IsAnalogTrigger("btn_cross"); ok {
		t.Error("unrelated ID should not be an analog trigger slot")
	}
}
