package discord

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/fetch"
)

// Profile edits the bot's own user.
type Profile struct {
	s *discordgo.Session
}

func NewProfile(s *discordgo.Session) *Profile {
	return &Profile{s: s}
}

// avatarDataURI encodes img the way the API expects avatars.
func avatarDataURI(img *fetch.Image) string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (p *Profile) SetAvatar(ctx context.Context, img *fetch.Image) error {
	body := struct {
		Avatar string `json:"avatar"`
	}{Avatar: avatarDataURI(img)}

	_, err := p.s.RequestWithBucketID(http.MethodPatch, discordgo.EndpointUser("@me"), body,
		discordgo.EndpointUsers, discordgo.WithContext(ctx))
	return mapError(err)
}
