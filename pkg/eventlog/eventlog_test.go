package eventlog

import "testing"

func TestCompareIDs(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "5-1", "5-1", 0},
		{"earlier ms", "4-9", "5-0", -1},
		{"later ms", "6-0", "5-9", 1},
		{"same ms earlier seq", "5-1", "5-2", -1},
		{"same ms later seq", "5-3", "5-2", 1},
		{"empty sorts first", "", "0-0", -1},
		{"anything beats empty", "0-0", "", 1},
		{"both empty", "", "", 0},
		{"missing seq treated as zero", "5", "5-0", 0},
		{"numeric not lexicographic", "10-0", "9-0", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompareIDs(tc.a, tc.b); got != tc.want {
				t.Errorf("CompareIDs(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
