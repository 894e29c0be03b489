package commands

import (
	"fmt"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{Use: "user", Short: "Manage users"}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		a, err := newAdminApp()
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.store.CreateUser(cmd.Context(), &domain.User{Username: username, FirstName: first, LastName: last})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s created with id %d\n", u.Username, u.ID)
		return nil
	},
}

var groupCmd = &cobra.Command{Use: "group", Short: "Manage groups"}

var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a group; slug defaults to a transliterated title",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		groupSlug, _ := cmd.Flags().GetString("slug")
		description, _ := cmd.Flags().GetString("description")
		if groupSlug == "" {
			groupSlug = slug.Make(title)
		}
		if !slug.IsSlug(groupSlug) {
			return fmt.Errorf("invalid slug %q", groupSlug)
		}

		a, err := newAdminApp()
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.store.CreateGroup(cmd.Context(), &domain.Group{Title: title, Slug: groupSlug, Description: description})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "group %q created at /group/%s/\n", g.Title, g.Slug)
		return nil
	},
}

var postCmd = &cobra.Command{Use: "post", Short: "Manage posts"}

var postDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a post with its comments and image",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetUint64("id")

		a, err := newAdminApp()
		if err != nil {
			return err
		}
		defer a.Close()

		post, err := a.store.GetPostByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := a.store.DeletePost(cmd.Context(), id); err != nil {
			return err
		}
		if post.HasImage() {
			images, err := a.openMedia()
			if err != nil {
				return err
			}
			if err := images.Delete(post.Image); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "post %d deleted\n", id)
		return nil
	},
}

var tokenCmd = &cobra.Command{Use: "token", Short: "Manage session tokens"}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a session token for an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")

		a, err := newAdminApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.store.GetUserByUsername(cmd.Context(), username); err != nil {
			return err
		}
		token, err := auth.NewTokens(a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL).Issue(username)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var cacheCmd = &cobra.Command{Use: "cache", Short: "Manage the page cache"}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Cache.Driver != "redis" {
			return errMemoryCache
		}
		pages, err := a.openCache(cmd.Context())
		if err != nil {
			return err
		}
		if err := pages.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("username", "", "Username (required)")
	userCreateCmd.Flags().String("first-name", "", "First name")
	userCreateCmd.Flags().String("last-name", "", "Last name")
	_ = userCreateCmd.MarkFlagRequired("username")
	userCmd.AddCommand(userCreateCmd)

	groupCreateCmd.Flags().String("title", "", "Group title (required)")
	groupCreateCmd.Flags().String("slug", "", "Group slug")
	groupCreateCmd.Flags().String("description", "", "Group description")
	_ = groupCreateCmd.MarkFlagRequired("title")
	groupCmd.AddCommand(groupCreateCmd)

	postDeleteCmd.Flags().Uint64("id", 0, "Post id (required)")
	_ = postDeleteCmd.MarkFlagRequired("id")
	postCmd.AddCommand(postDeleteCmd)

	tokenIssueCmd.Flags().String("username", "", "Username (required)")
	_ = tokenIssueCmd.MarkFlagRequired("username")
	tokenCmd.AddCommand(tokenIssueCmd)

	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(userCmd, groupCmd, postCmd, tokenCmd, cacheCmd)
}
