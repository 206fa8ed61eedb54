/*Basic command structure*/
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/voidshard/tillcounter/pkg/notify"
)

// globals holds options shared by every command
type globals struct {
	Store    string `default:"jsonfile:tillcounter.json" env:"TILLCOUNTER_STORE" help:"Where the ledger lives [memory: jsonfile:/path/file.json sealed:/path/file.bin es8:http://elasticsearch:9200 redis:localhost:6379 postgres:postgres://user@host/db]"`
	Server   string `env:"TILLCOUNTER_SERVER" help:"Talk to a running tillcounter server instead of --store (eg. http://localhost:8500)."`
	Operator string `default:"Admin" env:"TILLCOUNTER_OPERATOR" help:"User new transactions are attributed to."`
	SealKey  string `name:"seal-key" env:"TILLCOUNTER_SEAL_KEY" help:"Encryption key for sealed: stores."`
	SignKey  string `name:"sign-key" env:"TILLCOUNTER_SIGN_KEY" help:"Signing key for sealed: stores."`
	LogLevel string `default:"warn" enum:"debug,info,warn,error" help:"Log level."`

	log     zerolog.Logger
	out     notify.Notifier
	confirm notify.Confirmer
}

// cli commands / args available
var cli struct {
	Globals globals `embed:""`

	Serve  serveCmd  `cmd:"" help:"Serve the register over HTTP."`
	Open   openCmd   `cmd:"" help:"Open the register with an opening amount."`
	Close  closeCmd  `cmd:"" help:"Close the register."`
	Record recordCmd `cmd:"" help:"Record an income, expense or withdrawal (sangria)."`
	List   listCmd   `cmd:"" help:"List transactions."`
	Show   showCmd   `cmd:"" help:"Show a single transaction."`
	Status statusCmd `cmd:"" help:"Show the register balances."`
	Export exportCmd `cmd:"" help:"Bulk export every transaction to another store."`
	Keygen keygenCmd `cmd:"" help:"Print a fresh seal key and sign key."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tillcounter"),
		kong.Description("Cash register ledger for a small store."),
		kong.UsageOnError(),
	)

	g := &cli.Globals
	console := notify.NewConsole(os.Stdin, os.Stdout)
	g.out, g.confirm = console, console
	g.log = newLogger(g.LogLevel)

	if err := ctx.Run(g); err != nil {
		msg, level := notify.ForError(err)
		g.out.Notify(msg, level)
		g.log.Debug().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}
