package transform

import (
	"strings"
	"testing"
)

func TestSplitName(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantLast  string
		wantFirst string
	}{
		{"half-width space", "山田 太郎", "山田", "太郎"},
		{"ideographic space", "山田　太郎", "山田", "太郎"},
		{"no delimiter", "山田太郎", "山田太郎", ""},
		{"three tokens", "de la Cruz", "de", "la Cruz"},
		{"surrounding whitespace", "  山田 太郎  ", "山田", "太郎"},
		{"empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last, first := SplitName(tc.in)
			if last != tc.wantLast || first != tc.wantFirst {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)",
					tc.in, last, first, tc.wantLast, tc.wantFirst)
			}
		})
	}

	t.Run("rejoining reconstructs the name", func(t *testing.T) {
		for _, in := range []string{"山田 太郎", "佐藤　花子", "John Q Public"} {
			last, first := SplitName(in)
			rejoined := strings.Join(strings.Fields(strings.ReplaceAll(in, "　", " ")), " ")
			if got := strings.TrimSpace(last + " " + first); got != rejoined {
				t.Errorf("split+rejoin of %q = %q, want %q", in, got, rejoined)
			}
		}
	})
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"domestic with hyphens", "090-1234-5678", "+819012345678"},
		{"domestic plain", "09012345678", "+819012345678"},
		{"full-width digits and hyphens", "０９０－１２３４－５６７８", "+819012345678"},
		{"parentheses", "03(1234)5678", "+81312345678"},
		{"spaces", "090 1234 5678", "+819012345678"},
		{"already international", "+81 90-1234-5678", "+819012345678"},
		{"katakana long vowel mark separator", "090ー1234ー5678", "+819012345678"},
		{"full-width digits with long vowel mark", "０９０ー１２３４ー５６７８", "+819012345678"},
		{"halfwidth long vowel mark separator", "090ｰ1234ｰ5678", "+819012345678"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"no leading zero", "5012345678", "5012345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.in, "+81"); got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	t.Run("11-digit domestic number yields 13 characters", func(t *testing.T) {
		got := NormalizePhone("08011112222", "+81")
		if len(got) != 13 || !strings.HasPrefix(got, "+81") {
			t.Errorf("expected +81 plus 10 digits, got %q (%d chars)", got, len(got))
		}
	})

	t.Run("idempotent on international numbers", func(t *testing.T) {
		once := NormalizePhone("090-1234-5678", "+81")
		twice := NormalizePhone(once, "+81")
		if once != twice {
			t.Errorf("normalization not idempotent: %q != %q", once, twice)
		}
	})
}

func TestFormatPostal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"seven digits", "1234567", "123-4567"},
		{"already formatted", "123-4567", "123-4567"},
		{"full-width digits", "１２３４５６７", "123-4567"},
		{"too short", "12345", "12345"},
		{"too long", "12345678", "12345678"},
		{"empty", "", ""},
		{"non-digit", "12a4567", "12a4567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatPostal(tc.in); got != tc.want {
				t.Errorf("FormatPostal(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		once := FormatPostal("9876543")
		if twice := FormatPostal(once); twice != once {
			t.Errorf("formatting not idempotent: %q != %q", once, twice)
		}
	})
}

func TestSplitAddress(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		want1 string
		want2 string
	}{
		{"with building", "中央区銀座1-2-3　銀座ビル401", "中央区銀座1-2-3", "銀座ビル401"},
		{"no delimiter", "中央区銀座1-2-3", "中央区銀座1-2-3", ""},
		{"half-width space not a delimiter", "1-2-3 Ginza", "1-2-3 Ginza", ""},
		{"empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l1, l2 := SplitAddress(tc.in)
			if l1 != tc.want1 || l2 != tc.want2 {
				t.Errorf("SplitAddress(%q) = (%q, %q), want (%q, %q)",
					tc.in, l1, l2, tc.want1, tc.want2)
			}
		})
	}
}
