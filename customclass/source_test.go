package customclass

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func TestJavaSourceGolden(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Define(greeterDefinition())
	if err != nil {
		t.Fatal(err)
	}
	got := JavaSource(c)
	path := filepath.Join("testdata", "greeter.java.golden")
	updateGolden(t, path, got)
	compareGolden(t, path, got)
}

func TestJavaSourceWithoutActions(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Define(Definition{
		Name:       "Bean",
		Properties: []PropertyDef{{Name: "label", Type: "java.lang.String", Value: `"x"`, Attributes: []string{"public"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	src := JavaSource(c)
	if strings.Contains(src, "native") {
		t.Error("class without actions should have no native members")
	}
	if !strings.Contains(src, "\tpublic java.lang.String label = \"x\";") {
		t.Errorf("missing field declaration:\n%s", src)
	}
	if !strings.Contains(src, "public class Bean extends java.lang.Object {") {
		t.Errorf("missing class declaration:\n%s", src)
	}
}

func TestWriteSources(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Define(greeterDefinition()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Define(Definition{Name: "Other", Package: "org.more"}); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	files, err := r.WriteSources(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join("com", "test", "Greeter.java"),
		filepath.Join("org", "more", "Other.java"),
	}
	if !slices.Equal(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
}

// Golden file helpers

func updateGolden(t *testing.T, path, content string) {
	t.Helper()
	if os.Getenv("UPDATE_GOLDEN") == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating testdata dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("updating golden file: %v", err)
	}
}

func compareGolden(t *testing.T, path, got string) {
	t.Helper()
	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Logf("Golden file %s does not exist. Run with UPDATE_GOLDEN=1 to create.", path)
		return
	}
	if err != nil {
		t.Fatalf("reading golden file: %v", err)
	}
	if string(expected) != got {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(expected)),
			B:        difflib.SplitLines(got),
			FromFile: path,
			ToFile:   "got",
			Context:  3,
		})
		t.Errorf("output differs from golden file %s.\nRun with UPDATE_GOLDEN=1 to update.\n%s", path, diff)
	}
}
