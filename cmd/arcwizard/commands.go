package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kingrea/arc-wizard/internal/config"
	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/genesis"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

func handlePresetsCommand() bool {
	return handleCommand("presets", func(args []string) error {
		return runPresets(args, os.Stdout)
	})
}

func handleExportCommand() bool {
	return handleCommand("export", func(args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		return runExport(cwd, args, os.Stdout)
	})
}

func handleValidateCommand() bool {
	return handleCommand("validate", func(args []string) error {
		return runValidate(args, os.Stdout)
	})
}

func handleDeployCommand() bool {
	return handleCommand("deploy", func(args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runDeploy(ctx, cwd, args, os.Stdin, os.Stdout)
	})
}

// handleCommand runs fn when name is the first argument and exits the process.
func handleCommand(name string, fn func(args []string) error) bool {
	if len(os.Args) < 2 || os.Args[1] != name {
		return false
	}
	err := fn(os.Args[2:])
	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		os.Exit(1)
	}
	return true
}

var errUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError("%v", err)
	}
	return nil
}

func runPresets(args []string, out io.Writer) error {
	fs := newFlagSet("presets")
	speedName := fs.String("speed", "", "decision speed (slow, medium, fast); all presets when empty")
	asJSON := fs.Bool("json", false, "print the derived schemes as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *speedName == "" {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "FIELD\t%s\n", strings.Join(presetNames(), "\t"))
		for _, field := range genesis.NumericFields {
			row := []string{field}
			for _, p := range genesis.AllPresets() {
				params, err := genesis.PresetParams(p)
				if err != nil {
					return err
				}
				v, _ := params.Field(field)
				row = append(row, fmt.Sprint(v))
			}
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		return w.Flush()
	}

	speed, err := reconcile.ParseSpeed(*speedName)
	if err != nil {
		return usageError("%v", err)
	}
	schemes, err := reconcile.DerivePresetConfigs(speed)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(schemes)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tPRESET\tPARAMS HASH")
	for _, s := range schemes {
		h, err := s.Params.Hash()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Type.FriendlyName(), s.PresetLabel(), h.Hex())
	}
	return w.Flush()
}

func presetNames() []string {
	var names []string
	for _, p := range genesis.AllPresets() {
		names = append(names, strings.ToUpper(p.String()))
	}
	return names
}

// founderFlag collects repeatable --founder ADDR:REP[:TOKENS] values.
type founderFlag []string

func (f *founderFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(*f, ", ")
}

func (f *founderFlag) Set(value string) error {
	if strings.Count(value, ":") < 1 {
		return fmt.Errorf("expected ADDR:REP[:TOKENS], got %q", value)
	}
	*f = append(*f, value)
	return nil
}

func (f founderFlag) members() (dao.Members, error) {
	var ms dao.Members
	for _, raw := range f {
		parts := strings.SplitN(raw, ":", 3)
		tokens := ""
		if len(parts) == 3 {
			tokens = parts[2]
		}
		m, errs := dao.ParseMember(parts[0], parts[1], tokens)
		if err := errs.Err(); err != nil {
			return nil, fmt.Errorf("founder %q: %w", raw, err)
		}
		next, err := ms.Add(m)
		if err != nil {
			return nil, fmt.Errorf("founder %q: %w", raw, err)
		}
		ms = next
	}
	return ms, nil
}

func runExport(projectDir string, args []string, out io.Writer) error {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}
	fs := newFlagSet("export")
	org := fs.String("org", "", "organization name")
	tokenName := fs.String("token", "", "token name (derived from --org when empty)")
	symbol := fs.String("symbol", "", "token symbol (derived from --org when empty)")
	var founders founderFlag
	fs.Var(&founders, "founder", "founding member ADDR:REP[:TOKENS] (repeatable)")
	speedName := fs.String("speed", cfg.DefaultSpeed().String(), "decision speed (slow, medium, fast)")
	schemeNames := fs.String("schemes", "", "comma-separated scheme types (default from config)")
	target := fs.String("generic", "", "enable the Generic Scheme calling this contract")
	noProposer := fs.Bool("no-reward-proposer", false, "do not reward successful proposers")
	noVoters := fs.Bool("no-reward-voters", false, "do not reward or penalize voters")
	noAutoBet := fs.Bool("no-auto-bet", false, "disable the automatic DAO bounty")
	outPath := fs.String("out", cfg.ExportPath(), "output file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*org) == "" {
		return usageError("--org is required")
	}

	naming := dao.Naming{OrgName: *org, TokenName: *tokenName, TokenSymbol: *symbol}
	if strings.TrimSpace(naming.TokenName) == "" {
		naming.TokenName = dao.SuggestTokenName(*org)
	}
	if strings.TrimSpace(naming.TokenSymbol) == "" {
		naming.TokenSymbol = dao.SuggestTokenSymbol(*org)
	}
	members, err := founders.members()
	if err != nil {
		return err
	}

	speed, err := reconcile.ParseSpeed(*speedName)
	if err != nil {
		return usageError("%v", err)
	}
	types := cfg.DefaultSchemes()
	if *schemeNames != "" {
		types = nil
		for _, name := range strings.Split(*schemeNames, ",") {
			t, err := scheme.ParseType(strings.TrimSpace(name))
			if err != nil {
				return usageError("%v", err)
			}
			types = append(types, t)
		}
	}
	var gsTarget common.Address
	if *target != "" {
		if !common.IsHexAddress(*target) {
			return usageError("--generic: %q is not an address", *target)
		}
		gsTarget = common.HexToAddress(*target)
		if !containsType(types, scheme.GenericScheme) {
			types = append(types, scheme.GenericScheme)
		}
	}
	toggles := reconcile.DefaultToggles().
		With(reconcile.ToggleRewardProposer, !*noProposer).
		With(reconcile.ToggleRewardVoters, !*noVoters).
		With(reconcile.ToggleAutoBet, !*noAutoBet)
	st, err := reconcile.NewStateWith(speed, toggles, types)
	if err != nil {
		return err
	}
	for i := range st.Schemes {
		if st.Schemes[i].Type == scheme.GenericScheme {
			st.Schemes[i].Target = gsTarget
		}
	}

	params, err := migration.Build(naming, members, st.Schemes, cfg.MigrationOptions())
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		printProblems(out, "Not written", err)
		return err
	}
	path := *outPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}
	if err := migration.Save(path, params); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (%s)\n", path, st.Describe())
	return printHashes(out, params)
}

func containsType(types []scheme.Type, t scheme.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func printHashes(out io.Writer, params migration.Params) error {
	hashes, err := params.Hashes()
	if err != nil {
		return err
	}
	for i, h := range hashes {
		fmt.Fprintf(out, "  voting machine %d: %s\n", i, h.Hex())
	}
	return nil
}

func printProblems(out io.Writer, heading string, err error) {
	var problems migration.Problems
	if !errors.As(err, &problems) {
		return
	}
	fmt.Fprintln(out, heading)
	for _, p := range problems {
		fmt.Fprintf(out, "- %s\n", p)
	}
}

func runValidate(args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("validate takes exactly one file")
	}
	params, err := migration.Load(args[0])
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		printProblems(out, "Invalid: "+args[0], err)
		return err
	}
	fmt.Fprintf(out, "OK: %s (%s, %d founder(s))\n", args[0], params.OrgName, len(params.Founders))
	schemes, err := params.Restore()
	if err != nil {
		return err
	}
	for _, s := range schemes {
		fmt.Fprintf(out, "  %s · %s\n", s.Type.FriendlyName(), s.PresetLabel())
	}
	return printHashes(out, params)
}

func runDeploy(ctx context.Context, projectDir string, args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}
	fs := newFlagSet("deploy")
	network := fs.String("network", cfg.Network(), "target network")
	yes := fs.Bool("yes", false, "approve every migration step without asking")
	file, rest := splitFileArg(args)
	if err := parseFlags(fs, rest); err != nil {
		return err
	}
	if file == "" && fs.NArg() == 1 {
		file = fs.Arg(0)
	}
	if file == "" {
		return usageError("deploy needs a parameter file")
	}
	if strings.TrimSpace(cfg.Project.Migration.Command) == "" {
		return fmt.Errorf("%w (set migration.command in %s)", deploy.ErrNoCommand, cfg.ProjectConfigPath())
	}
	params, err := migration.Load(file)
	if err != nil {
		return err
	}

	started := time.Now()
	m := &deploy.TranscriptMigrator{
		Command: deploy.CommandMigrator{
			Command: cfg.Project.Migration.Command,
			Args:    cfg.Project.Migration.Args,
			Network: *network,
			Dir:     cfg.ProjectDir,
			State:   deploy.NewStateStore(cfg.StateDir()),
		},
		LogDir: cfg.LogsDir(),
		Now:    func() time.Time { return started },
	}
	answers := bufio.NewReader(in)
	cb := deploy.Callbacks{
		UserApproval: func(msg string) bool {
			if *yes {
				fmt.Fprintf(out, "? %s [auto-approved]\n", msg)
				return true
			}
			fmt.Fprintf(out, "? %s [y/N] ", msg)
			answer, _ := answers.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			return answer == "y" || answer == "yes"
		},
		Info:  func(msg string) { fmt.Fprintf(out, "  %s\n", msg) },
		Error: func(msg string) { fmt.Fprintf(out, "! %s\n", msg) },
		TxComplete: func(tx deploy.Tx) {
			fmt.Fprintf(out, "✓ %s (%s, %s ETH)\n", tx.Message, tx.Hash.Hex(), tx.Cost.String())
		},
	}
	previous, err := m.Command.State.Get(*network)
	if err != nil {
		return err
	}
	if previous != nil {
		fmt.Fprintf(out, "Resuming the interrupted %s migration from %s\n", *network, m.Command.State.Path(*network))
	}
	fmt.Fprintf(out, "Deploying %s to %s · transcript %s\n", params.OrgName, *network, m.TranscriptPath(started))
	res, err := m.Migrate(ctx, params, cb)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// splitFileArg lets the parameter file come before the flags, which the
// flag package would otherwise treat as the end of flag parsing.
func splitFileArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}
