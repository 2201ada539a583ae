// Package cli implements an interactive console client for the botkeeper
// HTTP API: registration, login, and record inspection and editing.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type App struct {
	config *Config
	client *Client
	reader *bufio.Reader
	out    io.Writer

	// Session state after a successful login.
	email string
	token string
}

func NewApp(c *Config) *App {
	return &App{
		config: c,
		client: NewClient(c.ServerURL),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) showLogin() string {
	if a.isLoggedIn() {
		return a.email
	}
	return "anonymous"
}

// Main starts a read-eval-print loop dispatching API commands. The loop
// exits on scanner EOF or when the user types "exit" or "quit".
func (a *App) Main(ctx context.Context) {

	fmt.Fprintln(a.out, "botkeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprintf(a.out, "botkeeper %s > ", a.showLogin())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: register, login, users, show <email>, state <email> <json>, addbot <email> <json>, movebot <email> <botId>, delete <email>, exit")

		case "register":
			a.report(a.Register(ctx))

		case "login":
			a.report(a.Login(ctx))

		case "users":
			a.report(a.ListUsers(ctx))

		case "show":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: show <email>")
				continue
			}
			a.report(a.Show(ctx, args[0]))

		case "state":
			if len(args) < 2 {
				fmt.Fprintln(a.out, "Usage: state <email> <json>")
				continue
			}
			a.report(a.ReplaceState(ctx, args[0], strings.Join(args[1:], " ")))

		case "addbot":
			if len(args) < 2 {
				fmt.Fprintln(a.out, "Usage: addbot <email> <json>")
				continue
			}
			a.report(a.AddBot(ctx, args[0], strings.Join(args[1:], " ")))

		case "movebot":
			if len(args) != 2 {
				fmt.Fprintln(a.out, "Usage: movebot <email> <botId>")
				continue
			}
			a.report(a.MoveBot(ctx, args[0], args[1]))

		case "delete":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: delete <email>")
				continue
			}
			a.report(a.Delete(ctx, args[0]))

		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return

		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func (a *App) report(err error) {
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, username, email, string(password), string(confirm)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered", email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	user, token, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return err
	}
	a.email = user.Email
	a.token = token
	a.client.SetToken(token)
	fmt.Fprintln(a.out, "Logged in as", user.Email)
	return nil
}

func (a *App) ListUsers(ctx context.Context) error {
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%s\t%s\n", u.Email, u.Username)
	}
	fmt.Fprintf(a.out, "%d user(s)\n", len(users))
	return nil
}

func (a *App) Show(ctx context.Context, email string) error {
	user, err := a.client.GetUser(ctx, email)
	if err != nil {
		return err
	}
	return a.printJSON(user)
}

func (a *App) ReplaceState(ctx context.Context, email, state string) error {
	updated, err := a.client.ReplaceState(ctx, email, json.RawMessage(state))
	if err != nil {
		return err
	}
	return a.printJSON(updated)
}

func (a *App) AddBot(ctx context.Context, email, bot string) error {
	added, err := a.client.AddActiveBot(ctx, email, json.RawMessage(bot))
	if err != nil {
		return err
	}
	return a.printJSON(added)
}

func (a *App) MoveBot(ctx context.Context, email, botID string) error {
	moved, err := a.client.MoveBot(ctx, email, botID)
	if err != nil {
		return err
	}
	return a.printJSON(moved)
}

func (a *App) Delete(ctx context.Context, email string) error {
	if err := a.client.DeleteUser(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", email)
	return nil
}

func (a *App) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}
