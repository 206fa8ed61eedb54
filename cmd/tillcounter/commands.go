package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/crypto"
	"github.com/voidshard/tillcounter/pkg/currency"
	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/notify"
	"github.com/voidshard/tillcounter/pkg/query"
	"github.com/voidshard/tillcounter/pkg/server"
	"github.com/voidshard/tillcounter/pkg/store"
)

const displayTime = "02/01/2006 15:04"

var inputTimes = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "02/01/2006 15:04"}

type serveCmd struct {
	Addr   string   `default:":8500" help:"Address to listen on."`
	Origin []string `env:"TILLCOUNTER_ORIGINS" help:"Browser origins allowed to use the API and event feed besides the server's own, eg. http://localhost:3000 ('*' for any)."`
}

func (c *serveCmd) Run(g *globals) error {
	ctx := context.Background()

	l, closer, err := openLedger(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	stopEvents := logEvents(l, notify.NewLog(g.log))
	defer stopEvents()

	srv := server.NewServer(l, c.Addr, g.log, c.Origin...)
	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	g.log.Info().Msg("shutting down")
	shutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

// logEvents reports every ledger event served to n until the returned
// func is called.
func logEvents(l *ledger.Ledger, n notify.Notifier) func() {
	return l.Subscribe(func(e domain.Event) {
		n.Notify(notify.ForEvent(e), notify.LevelSuccess)
	})
}

type openCmd struct {
	Amount string `arg:"" help:"Opening amount, eg. 500.00"`
}

func (c *openCmd) Run(g *globals) error {
	amount, err := parseAmount(c.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}

	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	st, err := reg.Open(ctx, amount)
	if err != nil {
		return err
	}
	g.out.Notify(notify.ForEvent(domain.Event{Kind: domain.EventOpened}), notify.LevelSuccess)
	printStatus(st)
	return nil
}

type closeCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *closeCmd) Run(g *globals) error {
	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	st, err := reg.Status(ctx)
	if err != nil {
		return err
	}
	if !st.IsOpen {
		return ledger.ErrAlreadyClosed
	}

	confirm := g.confirm
	if c.Yes {
		confirm = notify.Always{}
	}
	if !confirm.Confirm(notify.ClosePrompt(st)) {
		g.out.Notify("Fechamento cancelado", notify.LevelInfo)
		return nil
	}

	st, err = reg.Close(ctx)
	if err != nil {
		return err
	}
	g.out.Notify(notify.ForEvent(domain.Event{Kind: domain.EventClosed}), notify.LevelSuccess)
	printStatus(st)
	return nil
}

type recordCmd struct {
	Type        string `arg:"" help:"income (entrada), expense (saida) or withdrawal (sangria)."`
	Amount      string `arg:"" help:"Amount, eg. 85.50"`
	Description string `short:"d" required:"" help:"What the movement was."`
	Category    string `short:"c" help:"sales, expenses, supply or other. Defaults by type."`
	At          string `help:"When it happened, eg. '2025-07-30 14:30'. Defaults to now."`
	Notes       string `help:"Free text notes."`
}

func (c *recordCmd) Run(g *globals) error {
	typ, err := domain.ParseType(c.Type)
	if err != nil {
		return &ledger.ValidationError{Field: "type", Reason: err.Error()}
	}

	category := defaultCategory(typ)
	if c.Category != "" {
		category, err = domain.ParseCategory(c.Category)
		if err != nil {
			return &ledger.ValidationError{Field: "category", Reason: err.Error()}
		}
	}

	amount, err := parseAmount(c.Amount)
	if err != nil {
		return &ledger.ValidationError{Field: "amount", Reason: err.Error()}
	}

	at := time.Now()
	if c.At != "" {
		at, err = parseTime(c.At)
		if err != nil {
			return &ledger.ValidationError{Field: "timestamp", Reason: err.Error()}
		}
	}

	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	txn, err := reg.Record(ctx, domain.TransactionInput{
		Type:        typ,
		Category:    category,
		Description: c.Description,
		Amount:      amount,
		Timestamp:   at,
		Notes:       c.Notes,
	})
	if err != nil {
		return err
	}

	g.out.Notify(notify.ForEvent(domain.Event{Kind: domain.EventRecorded, Transaction: txn}), notify.LevelSuccess)
	printTransactions([]*domain.Transaction{txn})
	return nil
}

type listCmd struct {
	Type     string `short:"t" help:"Only this type."`
	Category string `short:"c" help:"Only this category."`
	Search   string `short:"s" help:"Text to find in description or user."`
	Period   string `default:"today" enum:"today,week,month,all" help:"today, week (last 7 days), month (last 30 days) or all."`
	Page     int    `default:"1" help:"Page number."`
	PageSize int    `default:"10" help:"Transactions per page."`
}

func (c *listCmd) Run(g *globals) error {
	crit := query.Criteria{Search: c.Search}

	var err error
	if c.Type != "" {
		if crit.Type, err = domain.ParseType(c.Type); err != nil {
			return &ledger.ValidationError{Field: "type", Reason: err.Error()}
		}
	}
	if c.Category != "" {
		if crit.Category, err = domain.ParseCategory(c.Category); err != nil {
			return &ledger.ValidationError{Field: "category", Reason: err.Error()}
		}
	}
	if crit.Period, err = query.ParsePeriod(c.Period); err != nil {
		return &ledger.ValidationError{Field: "period", Reason: err.Error()}
	}

	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	page, err := reg.Query(ctx, crit, c.PageSize, c.Page)
	if err != nil {
		return err
	}

	if len(page.Items) == 0 {
		g.out.Notify("Nenhuma movimentação encontrada", notify.LevelInfo)
		return nil
	}
	printTransactions(page.Items)
	fmt.Printf("\npágina %d de %d (%d movimentações)\n", page.CurrentPage, page.TotalPages, page.TotalCount)
	return nil
}

type showCmd struct {
	ID int64 `arg:"" help:"Transaction id."`
}

func (c *showCmd) Run(g *globals) error {
	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	t, err := reg.Get(ctx, c.ID)
	if err != nil {
		return err
	}

	notes := t.Notes
	if notes == "" {
		notes = "Nenhuma observação"
	}
	fmt.Printf("Detalhes da Movimentação #%d\n\n", t.ID)
	fmt.Printf("Data/Hora:   %s\n", t.Timestamp.Local().Format(displayTime))
	fmt.Printf("Tipo:        %s\n", t.Type.Label())
	fmt.Printf("Descrição:   %s\n", t.Description)
	fmt.Printf("Categoria:   %s\n", t.Category.Label())
	fmt.Printf("Valor:       %s\n", currency.Signed(t.Type.Prefix(), t.Amount))
	fmt.Printf("Saldo após:  %s\n", currency.FormatBRL(t.BalanceAfter))
	fmt.Printf("Usuário:     %s\n", t.User)
	fmt.Printf("Observações: %s\n", notes)
	return nil
}

type statusCmd struct{}

func (c *statusCmd) Run(g *globals) error {
	ctx := context.Background()
	reg, closer, err := connect(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	st, err := reg.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

type exportCmd struct {
	Out string `required:"" help:"Where to write [jsonfile:/path/file.json es8:http://myelasticsearch:9200]"`
}

func (c *exportCmd) Run(g *globals) error {
	ctx := context.Background()
	l, closer, err := openLedger(ctx, g)
	if err != nil {
		return err
	}
	defer closer()

	dst, dstCloser, err := getStore(ctx, c.Out, g, g.log)
	if err != nil {
		return err
	}
	defer dstCloser()

	exp, ok := dst.(store.Exporter)
	if !ok {
		return fmt.Errorf("store %s does not support bulk export", c.Out)
	}

	txns := l.Transactions()
	g.log.Info().Int("transactions", len(txns)).Str("out", c.Out).Msg("exporting")
	if err := exp.Write(txns); err != nil {
		return err
	}
	g.out.Notify(fmt.Sprintf("%d movimentações exportadas para %s", len(txns), c.Out), notify.LevelSuccess)
	return nil
}

type keygenCmd struct{}

func (c *keygenCmd) Run(g *globals) error {
	seal, err := crypto.NewRandomKey()
	if err != nil {
		return err
	}
	sign, err := crypto.NewRandomKey()
	if err != nil {
		return err
	}
	fmt.Printf("TILLCOUNTER_SEAL_KEY=%s\nTILLCOUNTER_SIGN_KEY=%s\n", seal, sign)
	return nil
}

func defaultCategory(t domain.TransactionType) domain.Category {
	switch t {
	case domain.TypeIncome:
		return domain.CategorySales
	case domain.TypeExpense:
		return domain.CategoryExpenses
	}
	return domain.CategoryOther
}

// parseAmount accepts both 1234.50 and the brazilian 1.234,50.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range inputTimes {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q, expected eg. 2025-07-30 14:30", s)
}

func printTransactions(txns []*domain.Transaction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATA/HORA\tTIPO\tDESCRIÇÃO\tCATEGORIA\tVALOR\tSALDO\tUSUÁRIO")
	for _, t := range txns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Timestamp.Local().Format(displayTime),
			t.Type.Label(),
			t.Description,
			t.Category.Label(),
			currency.Signed(t.Type.Prefix(), t.Amount),
			currency.FormatBRL(t.BalanceAfter),
			t.User,
		)
	}
	w.Flush()
}

func printStatus(st domain.RegisterStatus) {
	state := "Caixa Fechado"
	if st.IsOpen {
		state = "Caixa Aberto"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Situação:\t%s\n", state)
	if open := st.OpenTime(); open != "" {
		fmt.Fprintf(w, "Abertura:\t%s\n", open)
	}
	fmt.Fprintf(w, "Saldo inicial:\t%s\n", currency.FormatBRL(st.OpeningBalance))
	fmt.Fprintf(w, "Entradas:\t%s\n", currency.FormatBRL(st.TotalIncome))
	fmt.Fprintf(w, "Saídas:\t%s\n", currency.FormatBRL(st.TotalExpense))
	fmt.Fprintf(w, "Saldo atual:\t%s\n", currency.FormatBRL(st.CurrentBalance))
	w.Flush()
}
