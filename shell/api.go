package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/domino14/tdl2048/automatic"
	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/config"
	"github.com/domino14/tdl2048/stats"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) FloatDefault(key string, defaultF float64) (float64, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultF, nil
	}
	return strconv.ParseFloat(v[0], 64)
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}

func (sc *ShellController) showBoard() string {
	return fmt.Sprintf("%s\nscore = %d", sc.curBoard.ToDisplayText(), sc.curScore)
}

func (sc *ShellController) newGameCmd(cmd *shellcmd) (*Response, error) {
	sc.newGame()
	return msg(sc.showBoard()), nil
}

// board shows the current position, or sets it from a hex string or a
// display grid.
func (sc *ShellController) board(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.showBoard() + "\n" + sc.curBoard.String()), nil
	}
	b, err := board.ParseBoard(strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	sc.curBoard = b
	sc.curScore = 0
	return msg(sc.showBoard()), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	mv, err := sc.learner.SelectBestMove(sc.curBoard)
	if err != nil {
		return nil, err
	}
	return msg(mv.String()), nil
}

// play makes the greedy move on the current board and adds a tile, the
// given number of times.
func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	n := 1
	if len(cmd.args) > 0 {
		var err error
		n, err = strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		mv, err := sc.learner.SelectBestMove(sc.curBoard)
		if err != nil {
			return nil, err
		}
		if ok, _ := mv.Valid(); !ok {
			return msg(sc.showBoard() + "\ngame over"), nil
		}
		sc.curScore += mv.Reward()
		sc.curBoard = mv.Afterstate()
		sc.curBoard.Popup(sc.rng)
		log.Debug().Str("move", mv.Name()).Int("reward", mv.Reward()).Msg("played")
	}
	return msg(sc.showBoard()), nil
}

func (sc *ShellController) dump(cmd *shellcmd) (*Response, error) {
	var sb strings.Builder
	sc.learner.Dump(sc.curBoard, &sb)
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) train(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 && cmd.args[0] == "stop" {
		if !sc.training() {
			return nil, errNoTraining
		}
		sc.trainCancel()
		<-sc.trainDone
		sc.training()
		return msg("training stopped"), nil
	}
	if sc.training() {
		return nil, errTrainingRunning
	}
	total := sc.cfg.GetInt(config.ConfigTotal)
	if len(cmd.args) > 0 {
		var err error
		total, err = strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
	}
	alpha, err := cmd.options.FloatDefault("alpha", sc.cfg.GetFloat64(config.ConfigAlpha))
	if err != nil {
		return nil, err
	}
	unit, err := cmd.options.IntDefault("unit", sc.cfg.GetInt(config.ConfigUnit))
	if err != nil {
		return nil, err
	}

	logPath := cmd.options.String("log")
	if logPath == "" {
		logPath = sc.cfg.GetString(config.ConfigStatsLog)
	}
	r := sc.initRunner()
	r.SetAlpha(alpha)
	r.SetStats(stats.NewTrainingStats(unit), sc.stderr(), nil)
	var statsLog *os.File
	if logPath != "" {
		statsLog, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		r.SetStats(stats.NewTrainingStats(unit), sc.stderr(), statsLog)
	}

	sc.trainCtx, sc.trainCancel = context.WithCancel(context.Background())
	sc.trainDone = make(chan struct{})
	go func(ctx context.Context, done chan struct{}) {
		defer close(done)
		if statsLog != nil {
			defer statsLog.Close()
		}
		err := r.Train(ctx, total)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Err(err).Msg("training-error")
		}
	}(sc.trainCtx, sc.trainDone)
	return msg(fmt.Sprintf("training %d episodes in the background; `train stop` to stop", total)), nil
}

func (sc *ShellController) eval(cmd *shellcmd) (*Response, error) {
	games := 1000
	if len(cmd.args) > 0 {
		var err error
		games, err = strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
	}
	threads, err := cmd.options.IntDefault("threads", sc.cfg.GetInt(config.ConfigEvalThreads))
	if err != nil {
		return nil, err
	}
	seed, err := cmd.options.IntDefault("seed", int(sc.rng.Uint64n(1<<31)))
	if err != nil {
		return nil, err
	}
	summary, err := automatic.Evaluate(context.Background(), sc.learner, games, threads, int64(seed))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(summary.String())
	fmt.Fprintf(&sb, "\n95%% CI: ± %.1f\n", summary.CI95)
	if cmd.options.Bool("histogram") {
		if err := summary.Histogram(&sb); err != nil {
			return nil, err
		}
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) save(cmd *shellcmd) (*Response, error) {
	path := sc.weightsPath(cmd, config.ConfigSaveWeights)
	if path == "" {
		return nil, errors.New("usage: save <path>")
	}
	if err := sc.learner.SaveFile(path); err != nil {
		return nil, err
	}
	return msg("saved weights to " + path), nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	path := sc.weightsPath(cmd, config.ConfigLoadWeights)
	if path == "" {
		return nil, errors.New("usage: load <path>")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if err := sc.learner.LoadFile(path); err != nil {
		return nil, err
	}
	return msg("loaded weights from " + path + " (digest " + sc.learner.Digest() + ")"), nil
}

func (sc *ShellController) weightsPath(cmd *shellcmd, key string) string {
	if len(cmd.args) > 0 {
		return cmd.args[0]
	}
	return sc.cfg.GetString(key)
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	path := sc.cfg.GetString(config.ConfigStatsLog)
	if len(cmd.args) > 0 {
		path = cmd.args[0]
	}
	if path == "" {
		return nil, errors.New("usage: analyze <stats-log>")
	}
	report, err := automatic.AnalyzeStatsLog(path)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(report, "\n")), nil
}
