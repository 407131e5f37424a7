package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kestrelhq/kestrel/pkg/models"
)

func testDescriptor(name string, deps ...string) *models.ToolDescriptor {
	return &models.ToolDescriptor{
		Name:          name,
		Capabilities:  []string{"test"},
		TokenCost:     models.TokenCostLow,
		ExecutionTime: models.ExecutionTimeFast,
		Dependencies:  deps,
		Reliability:   0.9,
	}
}

func TestCatalog_RegisterDuplicate(t *testing.T) {
	c := New()
	if err := c.Register(testDescriptor("alpha")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := c.Register(testDescriptor("alpha"))
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("second register = %v, want DuplicateToolError", err)
	}
	if dup.Name != "alpha" {
		t.Errorf("duplicate name = %q, want %q", dup.Name, "alpha")
	}
}

func TestCatalog_RegisterValidation(t *testing.T) {
	c := New()
	tests := []struct {
		name string
		d    *models.ToolDescriptor
	}{
		{"empty name", &models.ToolDescriptor{TokenCost: models.TokenCostLow, ExecutionTime: models.ExecutionTimeFast}},
		{"bad cost", &models.ToolDescriptor{Name: "x", TokenCost: "huge", ExecutionTime: models.ExecutionTimeFast}},
		{"bad time", &models.ToolDescriptor{Name: "x", TokenCost: models.TokenCostLow, ExecutionTime: "instant"}},
		{"reliability out of range", &models.ToolDescriptor{Name: "x", TokenCost: models.TokenCostLow, ExecutionTime: models.ExecutionTimeFast, Reliability: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Register(tt.d); err == nil {
				t.Error("Register() should reject invalid descriptor")
			}
		})
	}
}

func TestCatalog_LookupUnknown(t *testing.T) {
	c := New()
	_, err := c.Lookup("ghost")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("Lookup(ghost) = %v, want UnknownToolError", err)
	}
}

func TestCatalog_Resolve_TransitiveClosure(t *testing.T) {
	c := New()
	for _, d := range []*models.ToolDescriptor{
		testDescriptor("a", "b"),
		testDescriptor("b", "c"),
		testDescriptor("c"),
		testDescriptor("d"),
	} {
		if err := c.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.Name, err)
		}
	}

	got, err := c.Resolve([]string{"a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve([a]) = %v, want %v", got, want)
	}
}

func TestCatalog_Resolve_Idempotent(t *testing.T) {
	c := New()
	for _, d := range []*models.ToolDescriptor{
		testDescriptor("a", "b"),
		testDescriptor("b"),
	} {
		if err := c.Register(d); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	once, err := c.Resolve([]string{"a"})
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	twice, err := c.Resolve(once)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("resolve not idempotent: %v then %v", once, twice)
	}
}

func TestCatalog_Resolve_SkipsUnknownNames(t *testing.T) {
	c := New()
	if err := c.Register(testDescriptor("real")); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := c.Resolve([]string{"real", "hallucinated-tool"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"real"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestCatalog_Resolve_CycleDetected(t *testing.T) {
	c := New()
	// Register the cycle members directly so Resolve trips over it.
	c.tools["x"] = testDescriptor("x", "y")
	c.tools["y"] = testDescriptor("y", "x")

	_, err := c.Resolve([]string{"x"})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Resolve on cycle = %v, want ErrCycleDetected", err)
	}
}

func TestCatalog_CheckAcyclic_SelfCycle(t *testing.T) {
	c := New()
	c.tools["self"] = testDescriptor("self", "self")

	if err := c.CheckAcyclic(); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("CheckAcyclic = %v, want ErrCycleDetected", err)
	}
}

func TestNewDefault_BuiltinsAreWellFormed(t *testing.T) {
	c := NewDefault()

	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}
	if err := c.CheckAcyclic(); err != nil {
		t.Fatalf("built-in catalog has a cycle: %v", err)
	}

	// Every built-in dependency must itself be registered.
	for _, name := range c.Names() {
		d, err := c.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		for _, dep := range d.Dependencies {
			if !c.Has(dep) {
				t.Errorf("tool %s depends on unregistered %s", name, dep)
			}
		}
	}
}

func TestCatalog_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	content := `tools:
  - name: custom-linter
    capabilities: [quality]
    token_cost: low
    execution_time: fast
    parallelizable: true
    reliability: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := New()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !c.Has("custom-linter") {
		t.Error("custom-linter not registered from file")
	}
}

func TestCatalog_LoadDir_MissingIsNotError(t *testing.T) {
	c := New()
	if err := c.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("LoadDir on missing dir = %v, want nil", err)
	}
}

func TestCatalog_ByTrigger(t *testing.T) {
	c := NewDefault()
	got := c.ByTrigger("bug-fix")
	if len(got) == 0 {
		t.Fatal("no tools auto-run on bug-fix")
	}
	for _, name := range got {
		d, err := c.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		found := false
		for _, trig := range d.AutoRunTriggers {
			if trig == "bug-fix" {
				found = true
			}
		}
		if !found {
			t.Errorf("tool %s returned by ByTrigger but lacks the trigger", name)
		}
	}
}
