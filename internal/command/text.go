package command

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
	"`", "\\`",
	`|`, `\|`,
	`>`, `\>`,
)

// EscapeMarkdown neutralizes chat markdown in s.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// EscapeMentions breaks @everyone, @here and user/role mentions with a
// zero-width space.
func EscapeMentions(s string) string {
	return strings.ReplaceAll(s, "@", "@\u200b")
}

// Sanitize applies both escapes.
func Sanitize(s string) string {
	return EscapeMentions(EscapeMarkdown(s))
}

// YesNo renders a flag.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// UserTag renders a user as name#discriminator, or just the name for
// accounts without a discriminator.
func UserTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// ParseBool accepts the usual chat spellings of a flag.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "t", "1", "enable", "on":
		return true, nil
	case "no", "n", "false", "f", "0", "disable", "off":
		return false, nil
	}
	return false, Invalid("%q is not a valid yes/no value.", s)
}

// ParseChannelMention returns the channel ID of a <#id> mention or a bare
// numeric ID.
func ParseChannelMention(s string) (string, bool) {
	id := s
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		id = s[2 : len(s)-1]
	}
	return id, isSnowflake(id)
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
