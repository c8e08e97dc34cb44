package style

import (
	"errors"
	"testing"
)

func TestDefineAndResolvePrecedence(t *testing.T) {
	r := NewRegistry()
	r.SetDefault(Attrs{FontFamily: String("Arial"), SizePt: Float(12)})
	if err := r.Define("Heading", Attrs{SizePt: Float(18), Bold: Bool(true)}, ""); err != nil {
		t.Fatal(err)
	}

	got := r.Resolve(Attrs{Bold: Bool(false)}, "Heading")
	if got.FontFamily == nil || *got.FontFamily != "Arial" {
		t.Fatalf("document default lost: %+v", got)
	}
	if got.SizePt == nil || *got.SizePt != 18 {
		t.Fatalf("named style did not override default: %+v", got)
	}
	if got.Bold == nil || *got.Bold {
		t.Fatalf("local override did not win: %+v", got)
	}
}

func TestFlattenInheritance(t *testing.T) {
	r := NewRegistry()
	if err := r.Define("Base", Attrs{FontFamily: String("Georgia"), SizePt: Float(11)}, ""); err != nil {
		t.Fatal(err)
	}
	if err := r.Define("Child", Attrs{SizePt: Float(14)}, "Base"); err != nil {
		t.Fatal(err)
	}

	got := r.Flatten("Child")
	if got.FontFamily == nil || *got.FontFamily != "Georgia" {
		t.Fatalf("parent attribute not inherited: %+v", got)
	}
	if got.SizePt == nil || *got.SizePt != 14 {
		t.Fatalf("child attribute not applied: %+v", got)
	}
}

func TestDefineRejectsSelfParent(t *testing.T) {
	r := NewRegistry()
	err := r.Define("Loop", Attrs{}, "Loop")
	var cyc *CyclicStyleError
	if !errors.As(err, &cyc) {
		t.Fatalf("got %v, want CyclicStyleError", err)
	}
	if _, ok := r.Lookup("Loop"); ok {
		t.Fatal("registry modified by rejected definition")
	}
}

func TestDefineRejectsTransitiveCycle(t *testing.T) {
	r := NewRegistry()
	if err := r.Define("A", Attrs{}, "B"); err != nil {
		t.Fatal(err)
	}
	if err := r.Define("B", Attrs{}, "C"); err != nil {
		t.Fatal(err)
	}

	err := r.Define("C", Attrs{Bold: Bool(true)}, "A")
	var cyc *CyclicStyleError
	if !errors.As(err, &cyc) {
		t.Fatalf("got %v, want CyclicStyleError", err)
	}
	if _, ok := r.Lookup("C"); ok {
		t.Fatal("registry modified by rejected definition")
	}
}

func TestDefineReplaces(t *testing.T) {
	r := NewRegistry()
	if err := r.Define("Body", Attrs{SizePt: Float(10)}, ""); err != nil {
		t.Fatal(err)
	}
	if err := r.Define("Body", Attrs{SizePt: Float(12)}, ""); err != nil {
		t.Fatal(err)
	}
	if got := r.Flatten("Body"); got.SizePt == nil || *got.SizePt != 12 {
		t.Fatalf("redefinition did not replace: %+v", got)
	}
}

func TestNamesNaturalOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Heading 10", "Heading 2", "Body", "Heading 1"} {
		if err := r.Define(name, Attrs{}, ""); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Names()
	want := []string{"Body", "Heading 1", "Heading 2", "Heading 10"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOverlayDoesNotAliasPointers(t *testing.T) {
	base := Attrs{SizePt: Float(12)}
	over := Attrs{SizePt: Float(14)}
	out := Overlay(over, base)
	*out.SizePt = 99
	if *over.SizePt != 14 || *base.SizePt != 12 {
		t.Fatal("overlay shares pointers with its inputs")
	}
}

func TestRegistryCloneIndependent(t *testing.T) {
	r := NewRegistry()
	if err := r.Define("Body", Attrs{SizePt: Float(10)}, ""); err != nil {
		t.Fatal(err)
	}
	c := r.Clone()
	if !r.Equal(c) {
		t.Fatal("clone not equal to original")
	}
	if err := c.Define("Body", Attrs{SizePt: Float(16)}, ""); err != nil {
		t.Fatal(err)
	}
	if got := r.Flatten("Body"); *got.SizePt != 10 {
		t.Fatal("editing the clone changed the original")
	}
}
