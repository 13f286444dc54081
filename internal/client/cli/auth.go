package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to create
// a new account on the server.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, userName, string(password)); err != nil {
		return err
	}

	fmt.Println("Success! You can now log in.")
	return nil
}

// Login prompts for credentials and authenticates against the server.
// Login requires connectivity; once a session exists, all record commands
// keep working offline through the local store and the sync queue.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Login(ctx, userName, string(password)); err != nil {
		a.logger.Warn(ctx, "login failed", "error", err.Error())
		return err
	}

	a.userName = userName
	a.logger.Info(ctx, "login successful", "user", userName)
	return nil
}

func (a *App) Logout(ctx context.Context) {
	a.userName = ""
	fmt.Println("Logged out")
}
