package tags

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/storage"
)

const listColor = 0x5865f2

// imageName is the attachment name a tag image is uploaded under.
func imageName(t storage.Tag) string {
	img := fetch.Image{ContentType: t.ImageType}
	return "image." + img.Extension()
}

// tagEmbed renders a single tag; the file is nil when the tag has no image.
func tagEmbed(t storage.Tag) (*discordgo.MessageEmbed, *discordgo.File) {
	e := embed.NewEmbed().
		SetTitle(t.Name).
		SetDescription(t.Content).
		SetColor(command.EmbedColor).
		SetFooter(fmt.Sprintf("Added by %s | Used %d times", t.AddedByTag, t.Uses))
	e.Timestamp = t.AddedAt.Format(time.RFC3339)

	if !t.HasImage() {
		return e.MessageEmbed, nil
	}
	name := imageName(t)
	e.SetImage("attachment://" + name)
	return e.MessageEmbed, &discordgo.File{
		Name:        name,
		ContentType: t.ImageType,
		Reader:      bytes.NewReader(t.Image),
	}
}

// groupKey is the upper-cased first character of a tag name.
func groupKey(t storage.Tag) string {
	for _, r := range t.Name {
		return string(unicode.ToUpper(r))
	}
	return ""
}

func renderList(p paginator.Page[string, storage.Tag]) *discordgo.MessageEmbed {
	keys := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		keys = append(keys, g.Key)
	}

	e := embed.NewEmbed().
		SetTitle("All tags").
		SetDescription(strings.Join(keys, " · ")).
		SetColor(listColor)
	for _, t := range p.Entries() {
		desc := fmt.Sprintf("Added by: %s\nUsed %d times", t.AddedByTag, t.Uses)
		if t.HasImage() {
			desc += "\nHas image attachment"
		}
		e.AddField(t.Name, desc)
	}
	return e.MessageEmbed
}
