package sanitize

import "testing"

func TestStripHTMLRemovesEncodedTags(t *testing.T) {
	got := StripHTML("hello &lt;script&gt;alert(1)&lt;/script&gt; <b>world</b>")
	if got != "hello alert(1) world" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestTextKeepsNewlinesAndCollapsesSpaces(t *testing.T) {
	got := Text("  first   line \n\tsecond\x07 line  ")
	if got != "first line\nsecond line" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestLineFlattensWhitespace(t *testing.T) {
	if got := Line(" San \n Diego "); got != "San Diego" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestStripHTMLKeepsBareAngleBrackets(t *testing.T) {
	got := StripHTML("budget <700k, >2 baths <!-- note --><i>soon</i> 3 < 4")
	if got != "budget <700k, >2 baths soon 3 < 4" {
		t.Fatalf("unexpected result %q", got)
	}
}
