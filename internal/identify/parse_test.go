package identify

import "testing"

func TestParseSpecificityFormats(t *testing.T) {
	tests := []struct {
		name     string
		resp     string
		want     bool
		wantWhy  string
	}{
		{"labeled yes", "SPECIFIC: YES\nREASON: brand plus model", true, "brand plus model"},
		{"labeled no", "SPECIFIC: NO\nREASON: just a category", false, "just a category"},
		{"bare yes", "YES\nREASON: named product line", true, "named product line"},
		{"bare no", "NO", false, ""},
		{"bare true", "TRUE\nhas a manufacturer", true, "has a manufacturer"},
		{"unprefixed reason", "YES\nthe term names an Apple product", true, "the term names an Apple product"},
		{"garbage", "I am not sure what you mean.", false, ""},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := parseSpecificity(tt.resp)
			if got != tt.want {
				t.Errorf("parseSpecificity(%q) = %v; want %v", tt.resp, got, tt.want)
			}
			if why != tt.wantWhy {
				t.Errorf("reason = %q; want %q", why, tt.wantWhy)
			}
		})
	}
}

func TestParseMultiItem(t *testing.T) {
	resp := `MULTI_ITEM: YES
ITEMS:
1. Gaming PC RTX 4080 i9-13900K 64GB
2. Intel Core i9-13900K
- EVGA RTX 4080 FTW3 Ultra
• Corsair Vengeance 64GB DDR5`

	isMulti, items := parseMultiItem(resp)
	if !isMulti {
		t.Fatal("expected multi-item verdict")
	}
	want := []string{
		"Gaming PC RTX 4080 i9-13900K 64GB",
		"Intel Core i9-13900K",
		"EVGA RTX 4080 FTW3 Ultra",
		"Corsair Vengeance 64GB DDR5",
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d: %v", len(items), len(want), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %q; want %q", i, items[i], want[i])
		}
	}
}

func TestParseMultiItemSingle(t *testing.T) {
	isMulti, items := parseMultiItem("MULTI_ITEM: NO\nITEMS: -")
	if isMulti {
		t.Error("expected single-item verdict")
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %v", items)
	}
}

func TestParseMultiItemInlineItems(t *testing.T) {
	isMulti, items := parseMultiItem("MULTI_ITEM: YES\nITEMS: Nintendo Switch OLED")
	if !isMulti || len(items) != 1 || items[0] != "Nintendo Switch OLED" {
		t.Errorf("got multi=%v items=%v", isMulti, items)
	}
}

func TestSanitizeTerm(t *testing.T) {
	tests := []struct {
		resp string
		want string
	}{
		{"iPhone 13 Pro 256GB", "iPhone 13 Pro 256GB"},
		{"SEARCH TERM: Nintendo Switch OLED", "Nintendo Switch OLED"},
		{"CANNOT_IDENTIFY", ""},
		{"cannot_identify", ""},
		{"Unknown brand watch", ""},
		{"Generic office chair", ""},
		{"Unbranded tablet 10 inch", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := sanitizeTerm(tt.resp); got != tt.want {
			t.Errorf("sanitizeTerm(%q) = %q; want %q", tt.resp, got, tt.want)
		}
	}
}

func TestIsWantedPost(t *testing.T) {
	tests := []struct {
		title string
		desc  string
		want  bool
	}{
		{"ISO Nintendo Switch", "", true},
		{"Looking for a PS5", "", true},
		{"WTB iPhone 13", "", true},
		{"iPhone 13 Pro", "anyone selling a charger too?", true},
		{"Isolation transformer 110V", "", false},
		{"Nintendo Switch OLED", "works great", false},
		{"Wanted: gaming chair", "", true},
	}
	for _, tt := range tests {
		got, _ := isWantedPost(tt.title, tt.desc, "")
		if got != tt.want {
			t.Errorf("isWantedPost(%q, %q) = %v; want %v", tt.title, tt.desc, got, tt.want)
		}
	}
}
