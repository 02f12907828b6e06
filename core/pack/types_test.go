package pack

import (
	"encoding/json"
	"testing"
)

func TestKindIsValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindAnnotation, true},
		{KindLink, true},
		{KindGroup, true},
		{KindUnknown, false},
		{Kind("verse"), false},
		{Kind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.want {
				t.Errorf("Kind(%q).IsValid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestPackFindAndCount(t *testing.T) {
	p := &Pack{
		Text: "The quick brown fox",
		Annotations: []*Annotation{
			{Span: Span{Begin: 0, End: 3}, ID: "1", LegendID: "corpus.Token"},
			{Span: Span{Begin: 4, End: 9}, ID: "2", LegendID: "corpus.Token"},
		},
		Links: []*Link{
			{ID: "3", FromEntryID: "1", ToEntryID: "2", LegendID: "corpus.Dependency"},
		},
		Groups: []*Group{
			{ID: "4", Members: []string{"1", "2"}, MemberType: KindAnnotation, LegendID: "corpus.Coref"},
		},
	}

	if got := p.EntryCount(); got != 4 {
		t.Errorf("EntryCount() = %d, want 4", got)
	}
	if a := p.FindAnnotation("2"); a == nil || a.Span.Begin != 4 {
		t.Errorf("FindAnnotation(2) = %+v, want span begin 4", a)
	}
	if p.FindAnnotation("99") != nil {
		t.Errorf("FindAnnotation(99) should be nil")
	}
	if l := p.FindLink("3"); l == nil || l.FromEntryID != "1" {
		t.Errorf("FindLink(3) = %+v", l)
	}
	if g := p.FindGroup("4"); g == nil || g.MemberType != KindAnnotation {
		t.Errorf("FindGroup(4) = %+v", g)
	}
}

func TestPackJSONShape(t *testing.T) {
	p := &Pack{
		Text: "abc",
		Annotations: []*Annotation{
			{Span: Span{Begin: 0, End: 2}, ID: "1", LegendID: "corpus.Token", Attributes: map[string]interface{}{"pos": "NN"}},
		},
		Links:      []*Link{},
		Groups:     []*Group{},
		Attributes: map[string]interface{}{},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	anns, ok := decoded["annotations"].([]interface{})
	if !ok || len(anns) != 1 {
		t.Fatalf("annotations shape wrong: %v", decoded["annotations"])
	}
	ann := anns[0].(map[string]interface{})
	span := ann["span"].(map[string]interface{})
	if span["begin"].(float64) != 0 || span["end"].(float64) != 2 {
		t.Errorf("span = %v, want {begin:0 end:2}", span)
	}
	if ann["legendId"] != "corpus.Token" {
		t.Errorf("legendId = %v", ann["legendId"])
	}
}

func TestHashPackDeterministic(t *testing.T) {
	build := func() *Pack {
		return &Pack{
			Text: "hello",
			Annotations: []*Annotation{
				{Span: Span{Begin: 0, End: 5}, ID: "1", LegendID: "corpus.Token"},
			},
		}
	}

	h1, err := HashPack(build())
	if err != nil {
		t.Fatalf("HashPack() error: %v", err)
	}
	h2, err := HashPack(build())
	if err != nil {
		t.Fatalf("HashPack() error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("HashPack not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestHashStringDiffers(t *testing.T) {
	if HashString("a") == HashString("b") {
		t.Errorf("distinct inputs should hash differently")
	}
	if HashString("a") != HashBytes([]byte("a")) {
		t.Errorf("HashString should agree with HashBytes")
	}
}
