package html

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Charming  bungalow\n near park", "Charming bungalow near park"},
		{"paragraphs", "<p>Sunny</p><p>Renovated kitchen</p>", "Sunny Renovated kitchen"},
		{"entities", "Pool &amp; spa &lt;new&gt;", "Pool & spa <new>"},
		{"script removed", "<div>Open house<script>alert(1)</script></div>", "Open house"},
		{"style removed", "<style>p{color:red}</style><b>Views</b>", "Views"},
		{"line breaks", "3 beds<br>2 baths", "3 beds 2 baths"},
		{"bare less-than stays literal", "price <  500000", "price < 500000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContainsMarkup(t *testing.T) {
	if !ContainsMarkup("<b>x</b>") {
		t.Error("expected markup to be detected")
	}
	if ContainsMarkup("price < 500000") {
		t.Error("a bare less-than is not markup")
	}
}
