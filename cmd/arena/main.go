package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/app"
	"github.com/codeduel-live/arena-client/internal/auth"
	"github.com/codeduel-live/arena-client/internal/config"
	"github.com/codeduel-live/arena-client/internal/gateway"
	"github.com/codeduel-live/arena-client/internal/integrity"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	tokens := auth.NewStore()
	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, tokens, logger.Named("api"))
	gw := gateway.New(cfg.WSBaseURL, tokens, cfg.KeepAliveInterval, logger.Named("gateway"))
	monitor := integrity.NewMonitor(client, logger.Named("integrity"))

	a := app.New(cfg, client, tokens, gw, monitor, termUI{}, logger)
	defer gw.CloseAll()

	fmt.Println("codeduel arena — type 'help' for commands")
	repl(a)
}

func repl(a *app.App) {
	ctx := context.Background()
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Printf("[%s] > ", a.Route())
		if !sc.Scan() {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		var err error
		switch cmd {
		case "help":
			usage()

		case "login":
			if len(args) != 2 {
				fmt.Println("usage: login <username> <password>")
				continue
			}
			err = a.Login(ctx, args[0], args[1])

		case "register":
			if len(args) != 3 {
				fmt.Println("usage: register <username> <email> <password>")
				continue
			}
			err = a.Register(ctx, args[0], args[1], args[2])

		case "players":
			err = search(ctx, a, strings.Join(args, " "))

		case "challenge":
			if len(args) < 1 {
				fmt.Println("usage: challenge <player-id> [name]")
				continue
			}
			err = challenge(a, args)

		case "cancel":
			if d := a.Dashboard(); d != nil {
				d.CancelChallenge()
			}

		case "accept", "decline":
			if d := a.Dashboard(); d != nil {
				d.Respond(cmd == "accept")
			}

		case "submit":
			if len(args) < 2 {
				fmt.Println("usage: submit <language> <code...>")
				continue
			}
			if b := a.Battle(); b != nil {
				b.Submit(strings.Join(args[1:], " "), args[0])
			} else {
				fmt.Println("not in a battle")
			}

		case "prefs":
			if len(args) != 2 {
				fmt.Println("usage: prefs <language> <difficulty>")
				continue
			}
			if d := a.Dashboard(); d != nil {
				err = d.SavePreferences(ctx, api.Preferences{
					PreferredLanguage:   args[0],
					PreferredDifficulty: args[1],
				})
			}

		case "logout":
			a.Logout(ctx)

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command, try 'help'")
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}

func search(ctx context.Context, a *app.App, term string) error {
	d := a.Dashboard()
	if d == nil {
		return fmt.Errorf("log in first")
	}
	players, err := d.SearchPlayers(ctx, term)
	if err != nil {
		return err
	}
	termUI{}.PlayerList(players)
	return nil
}

func challenge(a *app.App, args []string) error {
	d := a.Dashboard()
	if d == nil {
		return fmt.Errorf("log in first")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("player id must be a number")
	}
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	d.Challenge(id, name)
	return nil
}

func usage() {
	fmt.Println(`commands:
  login <username> <password>
  register <username> <email> <password>
  players [search]
  challenge <player-id> [name]
  cancel | accept | decline
  submit <language> <code...>
  prefs <language> <difficulty>
  logout | quit`)
}
