package permission

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	owner   string
	members map[string]*Member
	err     error
}

func (f *fakeMembers) GuildOwnerID(guildID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.owner, nil
}

func (f *fakeMembers) Member(guildID, userID string) (*Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, ErrUnknownMember
	}
	return m, nil
}

type fakeRoles map[string]int

func (f fakeRoles) RoleLevels(guildID string) (map[string]int, error) { return f, nil }

func newResolver() *RoleResolver {
	return &RoleResolver{
		Members: &fakeMembers{
			owner: "owner",
			members: map[string]*Member{
				"plain":   {UserID: "plain"},
				"genius":  {UserID: "genius", RoleIDs: []string{"r-genius"}},
				"mixed":   {UserID: "mixed", RoleIDs: []string{"r-plus", "r-mod", "r-unknown"}},
				"admin":   {UserID: "admin", Administrator: true},
				"admmod":  {UserID: "admmod", RoleIDs: []string{"r-owner"}, Administrator: true},
				"edition": {UserID: "edition", RoleIDs: []string{"r-edition"}},
			},
		},
		Roles: fakeRoles{
			"r-plus":    int(MemberPlus),
			"r-edition": int(MemberEdition),
			"r-genius":  int(Genius),
			"r-mod":     int(Moderator),
			"r-owner":   int(GuildOwner),
		},
		DeveloperID: "dev",
	}
}

func TestRoleResolver(t *testing.T) {
	r := newResolver()
	tests := []struct {
		user string
		want Level
	}{
		{"dev", GuildOwner},
		{"owner", GuildOwner},
		{"plain", Everyone},
		{"genius", Genius},
		{"mixed", Moderator},
		{"admin", Administrator},
		{"admmod", GuildOwner},
		{"edition", MemberEdition},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			got, err := r.Level("g1", tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := r.Level("g1", "stranger")
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestGate_FailureResolvesToEveryone(t *testing.T) {
	g := NewGate(ResolverFunc(func(guildID, userID string) (Level, error) {
		return Administrator, errors.New("guild unavailable")
	}), nil)

	assert.Equal(t, Everyone, g.Level("g1", "u1"))
	assert.True(t, g.HasAtLeast("g1", "u1", Everyone))
	assert.False(t, g.HasAtLeast("g1", "u1", MemberPlus))
}

func TestGate_Monotonic(t *testing.T) {
	for actual := Everyone; actual <= MaxLevel; actual++ {
		g := NewGate(ResolverFunc(func(string, string) (Level, error) { return actual, nil }), nil)
		for required := Everyone; required <= MaxLevel; required++ {
			t.Run(fmt.Sprintf("%d>=%d", actual, required), func(t *testing.T) {
				got := g.HasAtLeast("g", "u", required)
				assert.Equal(t, actual >= required, got)
				if got {
					for lower := Everyone; lower < required; lower++ {
						assert.True(t, g.HasAtLeast("g", "u", lower))
					}
				}
			})
		}
	}
}

func TestGate_EditionCannotRunGeniusCommands(t *testing.T) {
	g := NewGate(newResolver(), nil)
	assert.False(t, g.HasAtLeast("g1", "edition", Genius))
	assert.True(t, g.HasAtLeast("g1", "genius", Genius))
	assert.False(t, g.HasAtLeast("g1", "stranger", MemberPlus))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("5")
	require.NoError(t, err)
	assert.Equal(t, Moderator, l)

	l, err = ParseLevel("guild owner")
	require.NoError(t, err)
	assert.Equal(t, GuildOwner, l)

	_, err = ParseLevel("8")
	assert.Error(t, err)
	_, err = ParseLevel("boss")
	assert.Error(t, err)

	assert.Equal(t, "Moderator", Moderator.String())
	assert.Equal(t, "Level(9)", Level(9).String())
}
