package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/util"
	"github.com/spf13/cobra"
)

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *app) levelsCmd() *cobra.Command {
	levels := &cobra.Command{Use: "levels", Short: "Map guild roles to permission levels"}

	levels.AddCommand(&cobra.Command{
		Use:   "set <guild-id> <role-id> <level>",
		Short: "Map a role to a level by number or name (0 or Everyone removes it)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := permission.ParseLevel(args[2])
			if err != nil {
				return err
			}
			if err := a.store.SetRoleLevel(args[0], args[1], int(level)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "role %s -> %s\n", args[1], level)
			return nil
		},
	})

	levels.AddCommand(&cobra.Command{
		Use:   "list <guild-id>",
		Short: "Show role mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := a.store.RoleLevels(args[0])
			if err != nil {
				return err
			}
			roles := make([]string, 0, len(mapping))
			for role := range mapping {
				roles = append(roles, role)
			}
			slices.Sort(roles)

			w := a.table()
			fmt.Fprintln(w, "ROLE\tLEVEL")
			for _, role := range roles {
				fmt.Fprintf(w, "%s\t%d %s\n", role, mapping[role], permission.Level(mapping[role]))
			}
			return w.Flush()
		},
	})
	return levels
}

func (a *app) channelCmd() *cobra.Command {
	channel := &cobra.Command{Use: "channel", Short: "Configure named channels"}
	channel.AddCommand(&cobra.Command{
		Use:   "set <guild-id> <name> <channel-id>",
		Short: "Set a named channel, e.g. " + storage.ChannelBotSpam,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := command.ParseChannelMention(args[2])
			if !ok {
				return fmt.Errorf("invalid channel %q", args[2])
			}
			if err := a.store.SetChannel(args[0], args[1], id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s channel set to %s\n", args[1], id)
			return nil
		},
	})
	return channel
}

func (a *app) tagsCmd() *cobra.Command {
	tags := &cobra.Command{Use: "tags", Short: "Inspect tags"}
	tags.AddCommand(&cobra.Command{
		Use:   "list <guild-id>",
		Short: "List tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.store.Tags(args[0])
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "NAME\tUSES\tADDED BY\tADDED\tIMAGE")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", t.Name, t.Uses, t.AddedByTag,
					util.FormatDateTpl(t.AddedAt, "YYYY-MM-DD hh:mm"), command.YesNo(t.HasImage()))
			}
			return w.Flush()
		},
	})
	return tags
}

func (a *app) filterCmd() *cobra.Command {
	filter := &cobra.Command{Use: "filter", Short: "Inspect the word filter"}
	filter.AddCommand(&cobra.Command{
		Use:   "list <guild-id>",
		Short: "List filtered words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := a.store.FilterWords(args[0])
			if err != nil {
				return err
			}
			slices.SortFunc(words, func(x, y storage.FilterWord) int {
				return strings.Compare(storage.Fold(x.Phrase), storage.Fold(y.Phrase))
			})
			w := a.table()
			fmt.Fprintln(w, "PHRASE\tBYPASS\tREPORT\tPIRACY")
			for _, fw := range words {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fw.Phrase, permission.Level(fw.BypassLevel),
					command.YesNo(fw.Notify), command.YesNo(fw.Piracy))
			}
			return w.Flush()
		},
	})
	return filter
}

func (a *app) whitelistCmd() *cobra.Command {
	whitelist := &cobra.Command{Use: "whitelist", Short: "Manage the invite whitelist"}

	whitelist.AddCommand(&cobra.Command{
		Use:   "add <guild-id> <server-id>",
		Short: "Whitelist a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := a.store.AddWhitelistedGuild(args[0], args[1])
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintln(a.out, "already whitelisted")
				return nil
			}
			fmt.Fprintln(a.out, "whitelisted")
			return nil
		},
	})

	whitelist.AddCommand(&cobra.Command{
		Use:   "remove <guild-id> <server-id>",
		Short: "Remove a server from the whitelist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store.RemoveWhitelistedGuild(args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(a.out, "not whitelisted")
				return nil
			}
			fmt.Fprintln(a.out, "removed")
			return nil
		},
	})

	whitelist.AddCommand(&cobra.Command{
		Use:   "list <guild-id>",
		Short: "List whitelisted servers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.WhitelistedGuilds(args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(a.out, id)
			}
			return nil
		},
	})
	return whitelist
}
