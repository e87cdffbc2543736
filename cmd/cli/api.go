package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the token in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		resp, err := apiClient().Login(args[0], password)
		if err != nil {
			return err
		}
		if err := saveSetting("auth.token", resp.Token); err != nil {
			return fmt.Errorf("logged in but could not save token: %w", err)
		}
		printSuccess("Logged in as @%s", resp.User.Username)
		return nil
	},
}

func readPassword() (string, error) {
	if pw := os.Getenv("PLAZA_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Print("Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line), err
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		user, err := apiClient().Me()
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(user)
		}
		printInfo("@%s <%s>", user.Username, user.Email)
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed <Recent|Friends|Popular>",
	Short: "Show a page of a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		offset, _ := cmd.Flags().GetInt("offset")
		items, err := apiClient().Feed(args[0], offset)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(items)
		}
		printFeed(args[0], offset, items)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users, blogs or images",
	Long: `Search users by username or email, blogs by title or hashtag, and
images by hashtag.

Examples:
  plaza search ana
  plaza search travel --type images --offset 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("type")
		offset, _ := cmd.Flags().GetInt("offset")
		res, err := apiClient().Search(args[0], kind, offset)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(res)
		}
		printSearch(res)
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <user-id>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		if err := apiClient().Follow(args[0]); err != nil {
			return err
		}
		printSuccess("Following %s", args[0])
		return nil
	},
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <user-id>",
	Short: "Stop following a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		msg, err := apiClient().Unfollow(args[0])
		if err != nil {
			return err
		}
		printSuccess("%s", msg)
		return nil
	},
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List people you might want to follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		users, err := apiClient().Suggestions()
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(users)
		}
		for _, u := range users {
			fmt.Printf("  @%s  %s\n", u.Username, dimColor.Sprint(u.ID))
		}
		return nil
	},
}

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List fresh stories from you and the people around you",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		groups, err := apiClient().Stories()
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(groups)
		}
		for _, g := range groups {
			headerColor.Printf("@%s\n", g.User.Username)
			for _, s := range g.Stories {
				fmt.Printf("  %s  %s  %d views\n", s.ImageURL, dimColor.Sprint(ago(s.CreatedAt)), len(s.Views))
			}
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().Int("offset", 0, "Number of posts to skip")
	searchCmd.Flags().StringP("type", "t", "users", "What to search: users, blogs or images")
	searchCmd.Flags().Int("offset", 0, "Number of results to skip")
}
