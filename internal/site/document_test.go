package site

import (
	"errors"
	"slices"
	"testing"
)

func testDoc() Document {
	return Document{
		"hero": map[string]any{
			"slides": []any{
				map[string]any{"title": "Friday", "image": "uploads/party.png"},
				map[string]any{"title": "Saturday", "image": "uploads/stage.jpg"},
			},
		},
		"gallery": map[string]any{
			"images": []any{"a.png", "b.png", "c.png"},
		},
		"a/b": map[string]any{"~x": "escaped"},
	}
}

func TestGet(t *testing.T) {
	doc := testDoc()

	tests := []struct {
		name    string
		ptr     string
		want    any
		wantErr bool
	}{
		{name: "nested string", ptr: "/hero/slides/1/image", want: "uploads/stage.jpg"},
		{name: "array element", ptr: "/gallery/images/2", want: "c.png"},
		{name: "escaped tokens", ptr: "/a~1b/~0x", want: "escaped"},
		{name: "missing key", ptr: "/hero/missing", wantErr: true},
		{name: "index out of range", ptr: "/gallery/images/3", wantErr: true},
		{name: "leading zero index", ptr: "/gallery/images/01", wantErr: true},
		{name: "no leading slash", ptr: "hero", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Get(doc, tt.ptr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Get(%q) = %v, want error", tt.ptr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.ptr, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.ptr, got, tt.want)
			}
		})
	}
}

func TestSet(t *testing.T) {
	doc := testDoc()

	if err := Set(doc, "/hero/slides/0/image", "uploads/new.png"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := Get(doc, "/hero/slides/0/image"); v != "uploads/new.png" {
		t.Errorf("after Set, value = %v", v)
	}

	if err := Set(doc, "/gallery/images/-", "d.png"); err != nil {
		t.Fatalf("Set(append) error = %v", err)
	}
	if v, _ := Get(doc, "/gallery/images/3"); v != "d.png" {
		t.Errorf("after append, value = %v", v)
	}

	if err := Set(doc, "/nope/x", "v"); !errors.Is(err, ErrPointerMissing) {
		t.Errorf("Set() missing parent error = %v, want ErrPointerMissing", err)
	}
	if err := Set(doc, "", "v"); !errors.Is(err, ErrInvalidPointer) {
		t.Errorf("Set(root) error = %v, want ErrInvalidPointer", err)
	}
}

func TestRemove(t *testing.T) {
	doc := testDoc()

	if err := Remove(doc, "/gallery/images/1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	images, _ := Get(doc, "/gallery/images")
	if got := images.([]any); len(got) != 2 || got[0] != "a.png" || got[1] != "c.png" {
		t.Errorf("after Remove, images = %v", got)
	}

	if err := Remove(doc, "/hero/slides/0/image"); err != nil {
		t.Fatalf("Remove(field) error = %v", err)
	}
	if _, err := Get(doc, "/hero/slides/0/image"); err == nil {
		t.Error("field still present after Remove")
	}

	if err := Remove(doc, "/hero/slides/0/image"); err == nil {
		t.Error("Remove() of missing field should fail")
	}
}

func TestClone(t *testing.T) {
	doc := testDoc()
	cp := doc.Clone()

	if err := Set(cp, "/gallery/images/0", "changed.png"); err != nil {
		t.Fatal(err)
	}
	if v, _ := Get(doc, "/gallery/images/0"); v != "a.png" {
		t.Errorf("Clone() shares nested arrays: original now %v", v)
	}
	if Document(nil).Clone() == nil {
		t.Error("Clone() of nil document should return an empty document")
	}
}

func TestComparePointersRemovalOrder(t *testing.T) {
	ptrs := []string{"/g/2", "/g/10", "/g/9", "/g/1/x", "/g/1", "/h"}
	slices.SortFunc(ptrs, comparePointers)

	want := []string{"/h", "/g/10", "/g/9", "/g/2", "/g/1/x", "/g/1"}
	if !slices.Equal(ptrs, want) {
		t.Errorf("sorted = %v, want %v", ptrs, want)
	}
}
