package notify

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voidshard/tillcounter/pkg/currency"
	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a single message to the operator.
type Notifier interface {
	Notify(message string, level Level)
}

// Confirmer asks the operator a yes / no question.
type Confirmer interface {
	Confirm(message string) bool
}

// ForError maps a ledger error to the message shown to the operator.
func ForError(err error) (string, Level) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field == "amount":
		return "O valor deve ser maior que zero", LevelWarning
	case errors.Is(err, ledger.ErrValidation):
		return "Preencha todos os campos obrigatórios", LevelWarning
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "Saldo insuficiente para esta operação", LevelError
	case errors.Is(err, ledger.ErrRegisterClosed):
		return "O caixa deve estar aberto para realizar movimentações", LevelWarning
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "Informe um valor de abertura maior que zero", LevelWarning
	case errors.Is(err, ledger.ErrAlreadyOpen):
		return "O caixa já está aberto", LevelWarning
	case errors.Is(err, ledger.ErrAlreadyClosed):
		return "O caixa já está fechado", LevelWarning
	case errors.Is(err, ledger.ErrNotFound):
		return "Movimentação não encontrada", LevelWarning
	}
	return fmt.Sprintf("Erro inesperado: %v", err), LevelError
}

// ForEvent is the success message for a ledger event.
func ForEvent(e domain.Event) string {
	switch e.Kind {
	case domain.EventOpened:
		return "Caixa aberto com sucesso!"
	case domain.EventClosed:
		return "Caixa fechado com sucesso!"
	case domain.EventRecorded:
		if e.Transaction != nil {
			return fmt.Sprintf("%s registrada com sucesso!", e.Transaction.Type.Label())
		}
	}
	return "Operação realizada com sucesso!"
}

// ClosePrompt is the question asked before closing the register.
func ClosePrompt(st domain.RegisterStatus) string {
	return fmt.Sprintf("Deseja realmente fechar o caixa?\n\nSaldo atual: %s", currency.FormatBRL(st.CurrentBalance))
}

// Log sends notifications to a zerolog logger.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(message string, level Level) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = l.log.Error()
	case LevelWarning:
		ev = l.log.Warn()
	default:
		ev = l.log.Info()
	}
	ev.Str("level_ui", string(level)).Msg(message)
}

// Console talks to an operator over a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

var consoleIcons = map[Level]string{
	LevelSuccess: "✔",
	LevelInfo:    "ℹ",
	LevelWarning: "!",
	LevelError:   "✘",
}

func (c *Console) Notify(message string, level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", consoleIcons[level], message)
}

// Confirm prints message and reads a line; only y / yes / s / sim confirm.
func (c *Console) Confirm(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s [y/N] ", message)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim":
		return true
	}
	return false
}

// Always is a Confirmer that answers yes without asking.
type Always struct{}

func (Always) Confirm(string) bool { return true }
