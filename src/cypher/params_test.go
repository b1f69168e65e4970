package cypher

import "testing"

func TestParametersAddAndOverwrite(t *testing.T) {
	p := NewParameters()
	p.Add("a", 1)
	p.Add("a", 2)
	if got := p.ToMap()["a"]; got != 2 {
		t.Errorf("a = %v, want 2", got)
	}
	if p.Len() != 1 {
		t.Errorf("len = %d", p.Len())
	}
}

func TestParametersCopyIsIndependent(t *testing.T) {
	p := NewParameters()
	p.Add("a", 1)

	c := p.Copy()
	c.Add("b", 2)

	if p.Len() != 1 {
		t.Errorf("original grew to %d entries", p.Len())
	}
	if c.Len() != 2 {
		t.Errorf("copy has %d entries", c.Len())
	}
}

func TestParametersMergeInto(t *testing.T) {
	p := NewParameters()
	p.AddAll(map[string]interface{}{"a": 1, "b": 2})

	dst := map[string]interface{}{"a": 0, "c": 3}
	p.MergeInto(dst)

	if dst["a"] != 1 || dst["b"] != 2 || dst["c"] != 3 {
		t.Errorf("dst = %v", dst)
	}
}

func TestParametersToMapIsDetached(t *testing.T) {
	p := NewParameters()
	p.Add("a", 1)

	m := p.ToMap()
	m["a"] = 99

	if got := p.ToMap()["a"]; got != 1 {
		t.Errorf("store mutated through export: %v", got)
	}
}
