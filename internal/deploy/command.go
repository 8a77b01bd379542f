package deploy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/migration"
)

// Environment passed to the migration command.
const (
	EnvNetwork   = "ARCWIZARD_NETWORK"
	EnvStateFile = "ARCWIZARD_STATE_FILE"
)

// waitDelay bounds how long Wait keeps copying stderr after the migrator
// exits or is killed, in case a child process still holds the pipe.
const waitDelay = 5 * time.Second

// Event types the migration command writes to stdout, one JSON object per line.
const (
	EventInfo     = "info"
	EventError    = "error"
	EventApproval = "approval"
	EventTx       = "tx"
	EventState    = "state"
	EventResult   = "result"
	EventAborted  = "aborted"
)

type event struct {
	Type    string          `json:"type"`
	Message string          `json:"message,omitempty"`
	TxHash  string          `json:"txHash,omitempty"`
	TxCost  json.Number     `json:"txCost,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
	Result  *Result         `json:"result,omitempty"`
}

// CommandMigrator runs an external migration command. The command receives
// the parameter file path and the network as its final two arguments, and
// answers approval prompts on stdin with "y" or "n".
type CommandMigrator struct {
	Command string
	Args    []string
	Network string
	Dir     string
	State   *StateStore
	// Transcript receives every stdout line and the command's stderr.
	Transcript io.Writer
}

// Migrate implements Migrator.
func (m *CommandMigrator) Migrate(ctx context.Context, params migration.Params, cb Callbacks) (Result, error) {
	if strings.TrimSpace(m.Command) == "" {
		return Result{}, ErrNoCommand
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	tmpDir, err := os.MkdirTemp("", "arcwizard-migrate-*")
	if err != nil {
		return Result{}, fmt.Errorf("deploy: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	paramsPath := filepath.Join(tmpDir, "params.json")
	if err := migration.Save(paramsPath, params); err != nil {
		return Result{}, fmt.Errorf("deploy: %w", err)
	}

	args := append(append([]string(nil), m.Args...), paramsPath, m.Network)
	cmd := exec.CommandContext(ctx, m.Command, args...)
	cmd.Dir = m.Dir
	cmd.Env = append(cmd.Environ(), EnvNetwork+"="+m.Network)
	if m.State != nil {
		cmd.Env = append(cmd.Env, EnvStateFile+"="+m.State.Path(m.Network))
	}
	transcript := m.Transcript
	if transcript == nil {
		transcript = io.Discard
	}
	cmd.Stderr = transcript
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, fmt.Errorf("deploy: stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("deploy: stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("deploy: start %s: %w", m.Command, err)
	}

	run := &run{migrator: m, cb: cb, stdin: stdin, transcript: transcript}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		run.handle(scanner.Text())
	}
	scanErr := scanner.Err()
	_ = stdin.Close()
	if scanErr != nil {
		// Nothing reads stdout any more, so the migrator would block on it.
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		err = fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	case run.abort != nil:
		err = run.abort
	case scanErr != nil:
		err = fmt.Errorf("%w: read migrator output: %w", ErrAborted, scanErr)
	case waitErr != nil:
		err = fmt.Errorf("%w: %s exited: %v", ErrAborted, m.Command, waitErr)
	case run.result == nil:
		err = ErrNoResult
	}
	if err != nil {
		cb.aborted(err)
		return Result{}, err
	}
	if m.State != nil {
		if cleanErr := m.State.Clean(m.Network); cleanErr != nil {
			cb.error(cleanErr.Error())
		}
	}
	cb.complete(*run.result)
	return *run.result, nil
}

type run struct {
	migrator   *CommandMigrator
	cb         Callbacks
	stdin      io.Writer
	transcript io.Writer
	result     *Result
	abort      error
}

func (r *run) handle(line string) {
	fmt.Fprintln(r.transcript, line)
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	var ev event
	if !strings.HasPrefix(trimmed, "{") || json.Unmarshal([]byte(trimmed), &ev) != nil {
		r.cb.info(trimmed)
		return
	}
	switch ev.Type {
	case EventInfo:
		r.cb.info(ev.Message)
	case EventError:
		r.cb.error(ev.Message)
	case EventApproval:
		answer := "n"
		if r.cb.approve(ev.Message) {
			answer = "y"
		}
		if _, err := io.WriteString(r.stdin, answer+"\n"); err != nil {
			r.cb.error(fmt.Sprintf("deploy: answer approval: %v", err))
		}
	case EventTx:
		tx := Tx{Message: ev.Message, Hash: common.HexToHash(ev.TxHash)}
		if ev.TxCost != "" {
			cost, err := decimal.NewFromString(ev.TxCost.String())
			if err == nil {
				tx.Cost = cost
			}
		}
		r.cb.txComplete(tx)
	case EventState:
		if r.migrator.State == nil {
			return
		}
		if err := r.migrator.State.Set(r.migrator.Network, ev.State); err != nil {
			r.cb.error(err.Error())
		}
	case EventResult:
		if ev.Result == nil {
			r.cb.error("deploy: result event without a result")
			return
		}
		res := *ev.Result
		r.result = &res
	case EventAborted:
		msg := ev.Message
		if msg == "" {
			msg = "no reason given"
		}
		r.abort = fmt.Errorf("%w: %s", ErrAborted, msg)
	default:
		r.cb.info(trimmed)
	}
}

// IsAborted reports whether err came from an aborted migration.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
