package notify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
)

func TestForError(t *testing.T) {
	msg, lvl := ForError(fmt.Errorf("%w: balance 500.00", ledger.ErrInsufficientFunds))
	assert.Equal(t, "Saldo insuficiente para esta operação", msg)
	assert.Equal(t, LevelError, lvl)

	msg, lvl = ForError(&ledger.ValidationError{Field: "amount", Reason: "must be greater than zero"})
	assert.Equal(t, "O valor deve ser maior que zero", msg)
	assert.Equal(t, LevelWarning, lvl)

	msg, _ = ForError(&ledger.ValidationError{Field: "description", Reason: "is required"})
	assert.Equal(t, "Preencha todos os campos obrigatórios", msg)

	msg, _ = ForError(ledger.ErrRegisterClosed)
	assert.Equal(t, "O caixa deve estar aberto para realizar movimentações", msg)

	_, lvl = ForError(errors.New("disk full"))
	assert.Equal(t, LevelError, lvl)
}

func TestForEvent(t *testing.T) {
	e := domain.Event{Kind: domain.EventRecorded, Transaction: &domain.Transaction{Type: domain.TypeWithdrawal}}
	assert.Equal(t, "Sangria registrada com sucesso!", ForEvent(e))
	assert.Equal(t, "Caixa aberto com sucesso!", ForEvent(domain.Event{Kind: domain.EventOpened}))
}

func TestClosePrompt(t *testing.T) {
	p := ClosePrompt(domain.RegisterStatus{CurrentBalance: decimal.RequireFromString("804.30")})
	assert.True(t, strings.HasSuffix(p, "Saldo atual: R$ 804,30"))
}

func TestConsoleConfirm(t *testing.T) {
	for in, want := range map[string]bool{
		"y\n":     true,
		"Sim\n":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"yes":     true,
		"maybe\n": false,
	} {
		out := &bytes.Buffer{}
		c := NewConsole(strings.NewReader(in), out)
		assert.Equal(t, want, c.Confirm("Fechar?"), "input %q", in)
		assert.Contains(t, out.String(), "Fechar? [y/N]")
	}
}

func TestConsoleNotify(t *testing.T) {
	out := &bytes.Buffer{}
	NewConsole(strings.NewReader(""), out).Notify("Caixa aberto com sucesso!", LevelSuccess)
	assert.Equal(t, "✔ Caixa aberto com sucesso!\n", out.String())
}

func TestLogNotify(t *testing.T) {
	buf := &bytes.Buffer{}
	NewLog(zerolog.New(buf)).Notify("Saldo insuficiente", LevelError)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"message":"Saldo insuficiente"`)
}
