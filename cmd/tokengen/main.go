// Command tokengen mints a device access token signed with the server's
// secret. The secret and validity come from the server configuration
// (-c file, -s, -t); the owner and device from -u and -device.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/todosync/internal/flagx"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/config"
)

var errNoSecret = errors.New("no secret key configured (-s or config file)")

func run(args []string, w io.Writer) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	var userID, deviceID string
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&userID, "u", "", "user id the token is issued to")
	fs.StringVar(&deviceID, "device", "", "device id bound into the token (optional)")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-u", "-device"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if userID == "" {
		return errors.New("user id is required (-u)")
	}
	if cfg.SecretKey == "" {
		return errNoSecret
	}

	token, err := auth.GenerateToken(userID, deviceID, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}
