package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/tdl2048/automatic"
	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/config"
	"github.com/domino14/tdl2048/learning"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errTrainingRunning   = errors.New("training is running; use `train stop` first")
	errNoTraining        = errors.New("no training is running")
)

type ShellController struct {
	l   *readline.Instance
	cfg *config.Config

	learner *learning.Learner
	rng     *frand.RNG

	curBoard board.Board
	curScore int

	trainCtx    context.Context
	trainCancel context.CancelFunc
	trainDone   chan struct{}
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController returns a shell over l. Its tiles come from rng.
func NewShellController(cfg *config.Config, l *learning.Learner, rng *frand.RNG) *ShellController {
	sc := &ShellController{cfg: cfg, learner: l, rng: rng}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[33mtdl2048>\033[0m ",
		HistoryFile:     "/tmp/tdl2048_readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = rl
	sc.newGame()
	return sc
}

func (sc *ShellController) stderr() io.Writer {
	if sc.l == nil {
		return os.Stderr
	}
	return sc.l.Stderr()
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.stderr())
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line into its command, positional arguments and
// "-key value" options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && len(fields[i]) > 1 {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[i][1:]
			options[key] = append(options[key], fields[i+1])
			i++
			continue
		}
		args = append(args, fields[i])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "help", "train", "analyze":
	default:
		// Everything else reads the weights or the tile generator.
		if sc.training() {
			return nil, errTrainingRunning
		}
	}
	switch cmd.cmd {
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGameCmd(cmd)
	case "board":
		return sc.board(cmd)
	case "best":
		return sc.best(cmd)
	case "play":
		return sc.play(cmd)
	case "dump":
		return sc.dump(cmd)
	case "train":
		return sc.train(cmd)
	case "eval":
		return sc.eval(cmd)
	case "save":
		return sc.save(cmd)
	case "load":
		return sc.load(cmd)
	case "digest":
		return msg(sc.learner.Digest()), nil
	case "analyze":
		return sc.analyze(cmd)
	}
	return nil, errors.New("command " + cmd.cmd + " not found; try `help`")
}

// Execute runs a single line, as when the binary is given a command on its
// command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	if sc.executeLine(sig, line) {
		return
	}
	sc.waitForTraining()
}

// executeLine returns true if the line asked to exit.
func (sc *ShellController) executeLine(sig chan os.Signal, line string) bool {
	line = strings.TrimSpace(line)
	if line == "exit" {
		sig <- syscall.SIGINT
		return true
	}
	cmd, err := extractFields(line)
	if errors.Is(err, errNoData) {
		return false
	}
	if err != nil {
		sc.showError(err)
		return false
	}
	resp, err := sc.dispatch(cmd)
	if err != nil {
		sc.showError(err)
		return false
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
	return false
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		if sc.executeLine(sig, line) {
			break
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops any training and waits for it.
func (sc *ShellController) Cleanup() {
	if sc.trainCancel != nil {
		sc.trainCancel()
	}
	sc.waitForTraining()
}

func (sc *ShellController) waitForTraining() {
	if sc.trainDone != nil {
		<-sc.trainDone
	}
}

func (sc *ShellController) training() bool {
	if sc.trainDone == nil {
		return false
	}
	select {
	case <-sc.trainDone:
		sc.trainDone = nil
		sc.trainCancel = nil
		return false
	default:
		return true
	}
}

func (sc *ShellController) newGame() {
	sc.curBoard = 0
	sc.curBoard.Init(sc.rng)
	sc.curScore = 0
}

func (sc *ShellController) initRunner() *automatic.GameRunner {
	r := automatic.NewGameRunner(sc.learner, sc.rng)
	r.SetAlpha(sc.cfg.GetFloat64(config.ConfigAlpha))
	return r
}
