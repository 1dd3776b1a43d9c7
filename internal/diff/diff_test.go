package diff

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		base   []string
		target []string
		want   Result
	}{
		{
			name:   "partial translation",
			base:   []string{"a.md", "b.md", "c.md"},
			target: []string{"a.md"},
			want: Result{
				Missing: []string{"b.md", "c.md"}, Extra: []string{},
				Total: 3, Translated: 1, Rate: 33.33,
			},
		},
		{
			name:   "complete with extras",
			base:   []string{"home.title", "footer"},
			target: []string{"footer", "home.title", "home.subtitle"},
			want: Result{
				Missing: []string{}, Extra: []string{"home.subtitle"},
				Total: 2, Translated: 2, Rate: 100,
			},
		},
		{
			name:   "empty base",
			base:   nil,
			target: []string{"x"},
			want: Result{
				Missing: []string{}, Extra: []string{"x"},
				Total: 0, Translated: 0, Rate: 0,
			},
		},
		{
			name:   "empty target",
			base:   []string{"b", "a"},
			target: nil,
			want: Result{
				Missing: []string{"a", "b"}, Extra: []string{},
				Total: 2, Translated: 0, Rate: 0,
			},
		},
		{
			name:   "duplicates collapse",
			base:   []string{"a", "a", "b"},
			target: []string{"a", "a"},
			want: Result{
				Missing: []string{"b"}, Extra: []string{},
				Total: 2, Translated: 1, Rate: 50,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.base, tt.target))
		})
	}
}

func TestCompletionRateRounding(t *testing.T) {
	tests := []struct {
		translated, total int
		want              float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{1, 6, 16.67},
		{5, 7, 71.43},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.translated, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionRate(tt.translated, tt.total))
		})
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 1.01, Round2(1.005000001))
	assert.Equal(t, -0.13, Round2(-0.125))
}

func TestCompareProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	universe := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	pick := func() []string {
		var out []string
		for _, item := range universe {
			if rng.Intn(2) == 0 {
				out = append(out, item)
			}
		}
		return out
	}

	for i := 0; i < 200; i++ {
		base, target := pick(), pick()
		res := Compare(base, target)

		targetSet := map[string]bool{}
		for _, item := range target {
			targetSet[item] = true
		}

		// missing together with the translated part of base reconstructs base
		var rebuilt []string
		rebuilt = append(rebuilt, res.Missing...)
		for _, item := range base {
			if targetSet[item] {
				rebuilt = append(rebuilt, item)
			}
		}
		sort.Strings(rebuilt)
		want := append([]string{}, base...)
		sort.Strings(want)
		assert.Equal(t, want, append([]string{}, rebuilt...))

		for _, extra := range res.Extra {
			assert.NotContains(t, base, extra)
		}
		assert.Equal(t, res.Total, res.Translated+len(res.Missing))
		if res.Total == 0 {
			assert.Zero(t, res.Rate)
		}
		assert.True(t, sort.StringsAreSorted(res.Missing))
		assert.True(t, sort.StringsAreSorted(res.Extra))
	}
}
