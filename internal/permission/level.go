// Package permission resolves how much a guild member may do.
//
// Levels form a total order; a member allowed to run a command requiring
// level n may run everything requiring less.
package permission

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a per-guild authorization level.
type Level int

const (
	Everyone Level = iota
	MemberPlus
	MemberPro
	MemberEdition
	Genius
	Moderator
	Administrator
	GuildOwner
)

// MaxLevel is the highest assignable level.
const MaxLevel = GuildOwner

var levelNames = [...]string{
	Everyone:      "Everyone",
	MemberPlus:    "Member Plus",
	MemberPro:     "Member Pro",
	MemberEdition: "Member Edition",
	Genius:        "Genius",
	Moderator:     "Moderator",
	Administrator: "Administrator",
	GuildOwner:    "Guild Owner",
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is within [Everyone, MaxLevel].
func (l Level) Valid() bool {
	return l >= Everyone && l <= MaxLevel
}

// ParseLevel accepts a level number or a level name, case-insensitive.
func ParseLevel(s string) (Level, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if l := Level(n); l.Valid() {
			return l, nil
		}
		return 0, fmt.Errorf("level %d out of range 0..%d", n, int(MaxLevel))
	}
	for i, name := range levelNames {
		if strings.EqualFold(name, s) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
