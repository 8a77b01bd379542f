package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/config"
	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/logbook"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

const founder = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"

type fakeMigrator struct {
	got    migration.Params
	calls  int
	result deploy.Result
	err    error
}

func (f *fakeMigrator) Migrate(_ context.Context, params migration.Params, cb deploy.Callbacks) (deploy.Result, error) {
	f.calls++
	f.got = params
	if !cb.UserApproval("deploy avatar?") {
		return deploy.Result{}, deploy.ErrAborted
	}
	cb.Info("deploying")
	if f.err != nil {
		cb.Aborted(f.err)
		return deploy.Result{}, f.err
	}
	cb.TxComplete(deploy.Tx{Message: "avatar", Hash: common.HexToHash("0x01"), Cost: decimal.RequireFromString("0.25")})
	cb.TxComplete(deploy.Tx{Message: "schemes", Hash: common.HexToHash("0x02"), Cost: decimal.RequireFromString("0.5")})
	return f.result, nil
}

func fixture(t *testing.T, withMembers bool) *steps.StepContext {
	t.Helper()
	projectDir := t.TempDir()
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	draft := wizard.New(cfg.DraftDir())
	if _, err := draft.Start(cfg.Network()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := draft.SaveNaming(dao.Naming{OrgName: "Genesis Alpha", TokenName: "Genesis Alpha Token", TokenSymbol: "GAT"}); err != nil {
		t.Fatalf("naming: %v", err)
	}
	if withMembers {
		m, errs := dao.ParseMember(founder, "100", "5")
		if errs != nil {
			t.Fatalf("member: %v", errs)
		}
		if err := draft.SaveMembers(dao.Members{m}); err != nil {
			t.Fatalf("members: %v", err)
		}
	}
	if err := draft.SaveSchemes(reconcile.NewState()); err != nil {
		t.Fatalf("schemes: %v", err)
	}
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	return &steps.StepContext{Config: cfg, Draft: draft, Logbook: lb}
}

func press(s *Step, key string) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	if key == "esc" {
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	}
	_, cmd := s.Update(msg)
	return cmd
}

func settle(s *Step, cmd tea.Cmd) tea.Msg {
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case steps.StepCompleteMsg, steps.StepBackMsg, nil:
			return msg
		}
		_, cmd = s.Update(msg)
	}
	return nil
}

func TestInitBuildsDocument(t *testing.T) {
	ctx := fixture(t, true)
	s := New()
	s.Init(ctx)
	if len(s.Problems()) != 0 {
		t.Fatalf("unexpected problems: %v", s.Problems())
	}
	p := s.Params()
	// Medium speed: ContributionReward on Normal, SchemeRegistrar on Critical.
	if len(p.VotingMachinesParams) != 2 || len(s.hashes) != 2 {
		t.Fatalf("expected 2 voting machines, got %d", len(p.VotingMachinesParams))
	}
	if diff := cmp.Diff(migration.DefaultOptions(), p.Options()); diff != "" {
		t.Fatalf("options mismatch:\n%s", diff)
	}
}

func TestExportWritesBothCopies(t *testing.T) {
	ctx := fixture(t, true)
	s := New()
	s.Init(ctx)
	settle(s, press(s, "e"))
	if s.exported != ctx.Config.ExportPath() {
		t.Fatalf("exported to %q, want %q", s.exported, ctx.Config.ExportPath())
	}
	exported, err := migration.Load(ctx.Config.ExportPath())
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if diff := cmp.Diff(s.Params(), exported, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("export differs:\n%s", diff)
	}
	if _, ok, err := ctx.Draft.LoadParams(); err != nil || !ok {
		t.Fatalf("draft params missing: %v", err)
	}
}

func TestProblemsBlockExportAndDeploy(t *testing.T) {
	ctx := fixture(t, false)
	fake := &fakeMigrator{}
	ctx.Migrator = fake
	s := New()
	s.Init(ctx)
	if len(s.Problems()) == 0 {
		t.Fatalf("a document without founders must report problems")
	}
	if cmd := press(s, "e"); cmd != nil {
		t.Fatalf("export must be refused")
	}
	press(s, "d")
	if s.confirming || fake.calls != 0 {
		t.Fatalf("deploy must be refused")
	}
	if _, err := os.Stat(ctx.Config.ExportPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("nothing should be exported, stat err = %v", err)
	}
}

func TestDeployCompletesAndMarksDraft(t *testing.T) {
	ctx := fixture(t, true)
	fake := &fakeMigrator{result: deploy.Result{
		ArcVersion: "0.0.1-rc.22",
		Name:       "Genesis Alpha",
		Avatar:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	}}
	ctx.Migrator = fake
	s := New()
	s.Init(ctx)

	if cmd := press(s, "d"); cmd != nil || !s.confirming {
		t.Fatalf("deploy should ask for confirmation first")
	}
	press(s, "n")
	if s.confirming || fake.calls != 0 {
		t.Fatalf("declining must not deploy")
	}

	press(s, "d")
	msg := settle(s, press(s, "y"))
	done, ok := msg.(steps.StepCompleteMsg)
	if !ok || done.NextPhase != wizard.PhaseDeployed {
		t.Fatalf("expected completion, got %#v", msg)
	}
	if fake.calls != 1 || fake.got.OrgName != "Genesis Alpha" {
		t.Fatalf("migrator not called with the document: %+v", fake.got)
	}
	if s.summary == nil || s.summary.txs != 2 || s.summary.cost.String() != "0.75" {
		t.Fatalf("unexpected summary %+v", s.summary)
	}
	res, ok, err := ctx.Draft.Deployment()
	if err != nil || !ok || res.Avatar != fake.result.Avatar {
		t.Fatalf("deployment not recorded: %+v %v", res, err)
	}
	if ctx.Draft.CurrentPhase() != wizard.PhaseDeployed {
		t.Fatalf("draft should be deployed, got %s", ctx.Draft.CurrentPhase())
	}
	lines, _ := ctx.Logbook.Tail(20)
	found := false
	for _, line := range lines {
		if strings.Contains(line, "[deploy] Approved: deploy avatar?") {
			found = true
		}
	}
	if !found {
		t.Fatalf("approval not logged: %v", lines)
	}
}

func TestDeployFailureStaysOnReview(t *testing.T) {
	ctx := fixture(t, true)
	ctx.Migrator = &fakeMigrator{err: deploy.ErrAborted}
	s := New()
	s.Init(ctx)
	press(s, "d")
	if msg := settle(s, press(s, "y")); msg != nil {
		t.Fatalf("a failed deploy must not leave the step, got %#v", msg)
	}
	if s.errorMsg == "" || s.deploying {
		t.Fatalf("expected an error and no running deploy")
	}
	if _, ok, _ := ctx.Draft.Deployment(); ok {
		t.Fatalf("draft must not be marked deployed")
	}
}

func TestBackLeavesStep(t *testing.T) {
	ctx := fixture(t, true)
	s := New()
	s.Init(ctx)
	msg := settle(s, press(s, "esc"))
	if _, ok := msg.(steps.StepBackMsg); !ok {
		t.Fatalf("expected back, got %#v", msg)
	}
}
