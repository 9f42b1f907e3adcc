package paginator

import (
	"cmp"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type word struct {
	Text  string
	Level int
}

func renderWords(p Page[int, word]) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: "Filtered words"}
	for _, w := range p.Entries() {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: w.Text, Value: fmt.Sprint(w.Level)})
	}
	return e
}

// makeGroups builds one entry per item, level i for the i-th size.
func makeGroups(sizes ...int) []word {
	var out []word
	for level, n := range sizes {
		for i := 0; i < n; i++ {
			out = append(out, word{Text: fmt.Sprintf("w%d-%d", level, i), Level: level})
		}
	}
	return out
}

func newWordSource(t *testing.T, words []word, perPage int) *PageSource[int, word] {
	t.Helper()
	src, err := NewSource(words, Config[int, word]{
		Key:     func(w word) int { return w.Level },
		PerPage: perPage,
		Compare: cmp.Compare[int],
		Render:  renderWords,
	})
	require.NoError(t, err)
	return src
}

func TestSource_PacksWholeGroups(t *testing.T) {
	src := newWordSource(t, makeGroups(10, 10, 5), 12)
	require.Equal(t, 3, src.PageCount())

	for i, want := range []int{10, 10, 5} {
		p, err := src.Page(i)
		require.NoError(t, err)
		require.Len(t, p.Groups, 1)
		assert.Equal(t, i, p.Groups[0].Key)
		assert.Equal(t, want, p.Len())
	}
}

func TestSource_SharesPageWhenGroupsFit(t *testing.T) {
	src := newWordSource(t, makeGroups(4, 5, 3, 9), 12)
	require.Equal(t, 2, src.PageCount())

	p0, _ := src.Page(0)
	p1, _ := src.Page(1)
	assert.Equal(t, 12, p0.Len())
	assert.Len(t, p0.Groups, 3)
	assert.Equal(t, 9, p1.Len())
}

func TestSource_OversizedGroupGetsDedicatedPages(t *testing.T) {
	src := newWordSource(t, makeGroups(3, 30, 2), 12)
	// [3] [12] [12] [6] [2]
	require.Equal(t, 5, src.PageCount())

	sizes := []int{}
	for i := 0; i < src.PageCount(); i++ {
		p, err := src.Page(i)
		require.NoError(t, err)
		sizes = append(sizes, p.Len())
		if i >= 1 && i <= 3 {
			require.Len(t, p.Groups, 1, "oversized group must not share a page")
			assert.Equal(t, 1, p.Groups[0].Key)
		}
	}
	assert.Equal(t, []int{3, 12, 12, 6, 2}, sizes)
}

func TestSource_PartitionProperties(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int
		perPage int
	}{
		{"single entry", []int{1}, 1},
		{"one big group", []int{25}, 12},
		{"many small", []int{1, 2, 3, 4, 5, 6, 7}, 5},
		{"exact fit", []int{6, 6, 6, 6}, 12},
		{"mixed overflow", []int{13, 1, 12, 11, 2}, 12},
		{"per page one", []int{3, 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := makeGroups(tt.sizes...)
			src := newWordSource(t, words, tt.perPage)

			total := 0
			pagesOfGroup := map[int][]int{}
			for i := 0; i < src.PageCount(); i++ {
				p, err := src.Page(i)
				require.NoError(t, err)
				require.NotZero(t, p.Len())
				total += p.Len()
				for _, g := range p.Groups {
					pagesOfGroup[g.Key] = append(pagesOfGroup[g.Key], i)
				}
				if p.Len() > tt.perPage {
					t.Fatalf("page %d holds %d entries, cap %d", i, p.Len(), tt.perPage)
				}
			}
			assert.Equal(t, len(words), total)

			for level, size := range tt.sizes {
				if size <= tt.perPage {
					assert.Len(t, pagesOfGroup[level], 1, "group %d split across pages", level)
				}
			}
		})
	}
}

func TestSource_GroupOrder(t *testing.T) {
	words := []word{{"b", 2}, {"a", 1}, {"c", 2}, {"d", 0}}

	t.Run("insertion order without comparator", func(t *testing.T) {
		src, err := NewSource(words, Config[int, word]{
			Key:     func(w word) int { return w.Level },
			PerPage: 10,
			Render:  renderWords,
		})
		require.NoError(t, err)
		keys := []int{}
		for _, g := range src.Groups() {
			keys = append(keys, g.Key)
		}
		assert.Equal(t, []int{2, 1, 0}, keys)
	})

	t.Run("key order with comparator", func(t *testing.T) {
		src := newWordSource(t, words, 10)
		p, err := src.Page(0)
		require.NoError(t, err)
		texts := []string{}
		for _, w := range p.Entries() {
			texts = append(texts, w.Text)
		}
		assert.Equal(t, []string{"d", "a", "b", "c"}, texts)
	})
}

func TestSource_SnapshotIsolation(t *testing.T) {
	words := makeGroups(5, 5)
	src := newWordSource(t, words, 5)
	require.Equal(t, 2, src.PageCount())

	words[0].Text = "mutated"
	words = append(words, makeGroups(0, 0, 7)...)

	assert.Equal(t, 2, src.PageCount())
	p, err := src.Page(0)
	require.NoError(t, err)
	assert.Equal(t, "w0-0", p.Entries()[0].Text)
}

func TestSource_OutOfRange(t *testing.T) {
	src := newWordSource(t, makeGroups(3), 12)

	for _, idx := range []int{-1, 1, 42} {
		_, err := src.Page(idx)
		var oor *OutOfRangeError
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, idx, oor.Index)
		assert.Equal(t, 1, oor.Count)

		_, err = src.Render(idx)
		assert.ErrorAs(t, err, &oor)
	}
}

func TestSource_RenderStampsFooter(t *testing.T) {
	src := newWordSource(t, makeGroups(10, 10, 5), 12)

	e, err := src.Render(1)
	require.NoError(t, err)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "Page 2 of 3", e.Footer.Text)
	assert.Len(t, e.Fields, 10)
	assert.True(t, strings.HasPrefix(e.Fields[0].Name, "w1-"))
}

func TestSource_EmptyCollection(t *testing.T) {
	src := newWordSource(t, nil, 12)
	assert.Equal(t, 0, src.PageCount())
}

func TestSource_InvalidConfig(t *testing.T) {
	_, err := NewSource([]word{}, Config[int, word]{Key: func(w word) int { return 0 }, PerPage: 0, Render: renderWords})
	assert.Error(t, err)

	_, err = NewSource([]word{}, Config[int, word]{PerPage: 3, Render: renderWords})
	assert.Error(t, err)

	_, err = NewSource([]word{}, Config[int, word]{Key: func(w word) int { return 0 }, PerPage: 3})
	assert.Error(t, err)
}
