package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/command/commandtest"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/pkg/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	level permission.Level
	err   error
	panic bool
	ran   int
}

func (p *probe) Name() string                                           { return "probe" }
func (p *probe) Aliases() []string                                      { return []string{"pr"} }
func (p *probe) Description() string                                    { return "test command" }
func (p *probe) Category() string                                       { return "Test" }
func (p *probe) RequiredLevel(*command.MessageContext) permission.Level { return p.level }

func (p *probe) Run(ctx context.Context, mc *command.MessageContext) error {
	p.ran++
	if p.panic {
		panic("boom")
	}
	return p.err
}

func setup(t *testing.T, p *probe, levels commandtest.Levels) (*cmd.Registry, *command.Deps, *commandtest.Messenger) {
	t.Helper()
	msgr := &commandtest.Messenger{}
	deps := &command.Deps{Messenger: msgr, Gate: commandtest.Gate(levels)}
	r := cmd.NewRegistry()
	require.NoError(t, command.RegisterCommand(r, p,
		command.WithGuildOnly(),
		command.WithCommandLogger(nil, nil),
		command.WithPermissionLevel(deps.Gate),
	))
	return r, deps, msgr
}

func TestParse(t *testing.T) {
	name, args, ok := command.Parse("!AddTag roblox  some text", "!")
	require.True(t, ok)
	assert.Equal(t, "addtag", name)
	assert.Equal(t, []string{"roblox", "some", "text"}, args)

	_, _, ok = command.Parse("hello", "!")
	assert.False(t, ok)
	_, _, ok = command.Parse("!   ", "!")
	assert.False(t, ok)
}

func TestDispatch_DeniedBeforeRun(t *testing.T) {
	p := &probe{level: permission.Genius}
	r, deps, msgr := setup(t, p, commandtest.Levels{"u3": permission.MemberEdition})

	found := command.Dispatch(context.Background(), r, deps, commandtest.Message("u3"), "pr")
	require.True(t, found)
	assert.Zero(t, p.ran)

	last := msgr.Last()
	require.NotNil(t, last)
	assert.Equal(t, "You do not have permission to use this command.", last.Embed.Description)

	after, ok := msgr.DeletedMessage(commandtest.TriggerID)
	require.True(t, ok, "trigger is deleted")
	assert.Equal(t, command.ErrorReplyTTL, after)
	_, ok = msgr.DeletedMessage(last.MessageID)
	assert.True(t, ok, "error reply is deleted")
}

func TestDispatch_AllowedAtLevel(t *testing.T) {
	p := &probe{level: permission.Genius}
	r, deps, msgr := setup(t, p, commandtest.Levels{"u4": permission.Genius})

	command.Dispatch(context.Background(), r, deps, commandtest.Message("u4"), "probe")
	assert.Equal(t, 1, p.ran)
	assert.Empty(t, msgr.Sent())
	assert.Empty(t, msgr.Deleted())
}

func TestDispatch_ValidationMessageShown(t *testing.T) {
	p := &probe{err: command.Invalid("That tag does not exist.")}
	r, deps, msgr := setup(t, p, nil)

	command.Dispatch(context.Background(), r, deps, commandtest.Message("u1"), "probe")
	require.NotNil(t, msgr.Last())
	assert.Equal(t, "That tag does not exist.", msgr.Last().Embed.Description)
}

func TestDispatch_UnexpectedErrorsAreGeneric(t *testing.T) {
	p := &probe{err: command.External("edit message", errors.New("503 from upstream"))}
	r, deps, msgr := setup(t, p, nil)

	command.Dispatch(context.Background(), r, deps, commandtest.Message("u1"), "probe")
	require.NotNil(t, msgr.Last())
	assert.Equal(t, "A fatal error occurred.", msgr.Last().Embed.Description)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	p := &probe{panic: true}
	r, deps, msgr := setup(t, p, nil)

	assert.NotPanics(t, func() {
		command.Dispatch(context.Background(), r, deps, commandtest.Message("u1"), "probe")
	})
	require.NotNil(t, msgr.Last())
	assert.Equal(t, "A fatal error occurred.", msgr.Last().Embed.Description)
}

func TestDispatch_UnknownAndDirectMessages(t *testing.T) {
	p := &probe{}
	r, deps, msgr := setup(t, p, nil)

	assert.False(t, command.Dispatch(context.Background(), r, deps, commandtest.Message("u1"), "nope"))

	dm := commandtest.Message("u1")
	dm.Event.GuildID = ""
	assert.True(t, command.Dispatch(context.Background(), r, deps, dm, "probe"))
	assert.Zero(t, p.ran)
	assert.Empty(t, msgr.Sent())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `\*\*bold\*\* @`+"\u200b"+`everyone`, command.Sanitize("**bold** @everyone"))
	assert.Equal(t, `a\_b\|c`, command.EscapeMarkdown("a_b|c"))
}
