// internal/steps/review/review.go
//
// Review step: summarizes the draft, exports the migration document and
// hands it to the migrator.
// Output: migration-params.json, .arcwizard/draft/params.json, .deployed

package review

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/steps"
	"github.com/kingrea/arc-wizard/internal/wizard"
)

// Step shows the assembled migration document.
type Step struct {
	steps.BaseStep

	naming  dao.Naming
	members dao.Members
	state   reconcile.State

	params   migration.Params
	hashes   []common.Hash
	problems []string
	ready    bool

	confirming bool
	deploying  bool
	cancel     context.CancelFunc
	exported   string
	summary    *deploySummary

	errorMsg string
}

type deploySummary struct {
	result deploy.Result
	txs    int
	cost   decimal.Decimal
}

// New creates the review step.
func New() *Step {
	return &Step{BaseStep: steps.NewBaseStep("Review & deploy", wizard.PhaseReview)}
}

// Init loads every saved answer and builds the migration document.
func (s *Step) Init(ctx *steps.StepContext) tea.Cmd {
	s.SetContext(ctx)
	s.ready = false
	s.problems = nil
	s.hashes = nil
	if ctx == nil || ctx.Draft == nil {
		s.errorMsg = "no draft attached"
		return nil
	}
	if err := s.load(ctx.Draft); err != nil {
		s.errorMsg = err.Error()
		s.LogWarn("Review unavailable: %v", err)
		s.setStatus()
		return nil
	}
	s.build()
	s.setStatus()
	s.LogInfo("Reviewing %s: %d voting machine(s), %d problem(s)", s.naming.OrgName, len(s.params.VotingMachinesParams), len(s.problems))
	return nil
}

func (s *Step) load(d *wizard.Draft) error {
	naming, ok, err := d.LoadNaming()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("the organization has not been named yet")
	}
	members, err := d.LoadMembers()
	if err != nil {
		return err
	}
	state, ok, err := d.LoadSchemes()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no schemes have been configured yet")
	}
	s.naming, s.members, s.state = naming, members, state
	return nil
}

func (s *Step) options() migration.Options {
	if ctx := s.Context(); ctx != nil && ctx.Config != nil {
		return ctx.Config.MigrationOptions()
	}
	return migration.DefaultOptions()
}

func (s *Step) build() {
	params, err := migration.Build(s.naming, s.members, s.state.Schemes, s.options())
	if err != nil {
		s.errorMsg = err.Error()
		return
	}
	s.params = params
	s.ready = true
	var problems migration.Problems
	if err := params.Validate(); errors.As(err, &problems) {
		s.problems = problems
	}
	hashes, err := params.Hashes()
	if err != nil {
		s.errorMsg = err.Error()
		return
	}
	s.hashes = hashes
}

// Params returns the assembled document.
func (s *Step) Params() migration.Params {
	return s.params
}

// Problems lists the validation issues blocking export and deploy.
func (s *Step) Problems() []string {
	return s.problems
}

// Update handles key input and background results.
func (s *Step) Update(msg tea.Msg) (steps.Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)

	case exportedMsg:
		s.errorMsg = ""
		s.exported = msg.path
		s.LogInfo("Exported migration parameters to %s", msg.path)
		s.setStatus()
		return s, nil

	case deployDoneMsg:
		s.deploying = false
		s.cancel = nil
		if msg.err != nil {
			s.errorMsg = fmt.Sprintf("Deploy failed: %v", msg.err)
			s.LogWarn("Deploy failed: %v", msg.err)
			s.setStatus()
			return s, nil
		}
		s.errorMsg = ""
		s.summary = &deploySummary{result: msg.result, txs: msg.txs, cost: msg.cost}
		s.LogInfo("Deployed %s · Avatar %s · %d tx · %s ETH", msg.result.Name, msg.result.Avatar.Hex(), msg.txs, msg.cost.String())
		s.SetComplete(true)
		return s, s.Complete()

	case steps.StepErrorMsg:
		s.errorMsg = msg.Error.Error()
		s.LogWarn("Review action failed: %v", msg.Error)
		return s, nil
	}
	return s, nil
}

func (s *Step) handleKey(msg tea.KeyMsg) (steps.Step, tea.Cmd) {
	key := msg.String()
	if s.deploying {
		if key == "ctrl+c" || key == "esc" {
			if s.cancel != nil {
				s.cancel()
			}
			s.SetStatusMsg("Cancelling migration...")
		}
		return s, nil
	}
	if key == "ctrl+c" {
		return s, tea.Quit
	}
	if s.confirming {
		s.confirming = false
		if key == "y" || key == "Y" {
			return s, s.deploy()
		}
		s.setStatus()
		return s, nil
	}

	switch key {
	case "esc", "b":
		return s, s.Back()
	case "e":
		if err := s.checkReady(); err != nil {
			s.errorMsg = err.Error()
			return s, nil
		}
		return s, s.export()
	case "d":
		if err := s.checkReady(); err != nil {
			s.errorMsg = err.Error()
			return s, nil
		}
		if ctx := s.Context(); ctx == nil || ctx.Migrator == nil {
			s.errorMsg = "no migration command configured (set migration.command in .arcwizard/config.yaml)"
			return s, nil
		}
		s.confirming = true
		s.SetStatusMsg(fmt.Sprintf("Deploy %s to %s? This spends funds. y to confirm · any other key cancels", s.params.OrgName, s.network()))
	}
	return s, nil
}

func (s *Step) checkReady() error {
	if !s.ready {
		return errors.New("the migration document could not be built")
	}
	if len(s.problems) > 0 {
		return fmt.Errorf("fix %d problem(s) before continuing", len(s.problems))
	}
	return nil
}

func (s *Step) network() string {
	if ctx := s.Context(); ctx != nil && ctx.Config != nil {
		return ctx.Config.Network()
	}
	return "the configured network"
}

func (s *Step) export() tea.Cmd {
	params := s.params
	ctx := s.Context()
	return func() tea.Msg {
		if err := ctx.Draft.SaveParams(params); err != nil {
			return steps.StepErrorMsg{Error: err}
		}
		path := filepath.Join(ctx.Draft.Dir(), wizard.FileParams)
		if ctx.Config != nil {
			path = ctx.Config.ExportPath()
			if err := migration.Save(path, params); err != nil {
				return steps.StepErrorMsg{Error: err}
			}
		}
		return exportedMsg{path: path}
	}
}

// deploy runs the migrator in the background. The user already confirmed,
// so every approval prompt from the migrator is accepted and logged.
func (s *Step) deploy() tea.Cmd {
	params := s.params
	sctx := s.Context()
	log := sctx.Logbook.WithScope("deploy")
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.deploying = true
	s.errorMsg = ""
	s.SetStatusMsg(fmt.Sprintf("Deploying to %s · esc to cancel", s.network()))
	s.LogInfo("Deploy confirmed for %s", params.OrgName)

	return func() tea.Msg {
		defer cancel()
		if err := sctx.Draft.SaveParams(params); err != nil {
			return deployDoneMsg{err: err}
		}
		var (
			txs  int
			cost = decimal.Zero
		)
		cb := deploy.Callbacks{
			UserApproval: func(msg string) bool {
				log.Info("Approved: %s", msg)
				return true
			},
			Info:  func(msg string) { log.Info("%s", msg) },
			Error: func(msg string) { log.Warn("%s", msg) },
			TxComplete: func(tx deploy.Tx) {
				txs++
				cost = cost.Add(tx.Cost)
				log.Info("%s · tx %s · %s ETH", tx.Message, tx.Hash.Hex(), tx.Cost.String())
			},
			Aborted: func(err error) { log.Error("Aborted: %v", err) },
		}
		res, err := sctx.Migrator.Migrate(runCtx, params, cb)
		if err != nil {
			return deployDoneMsg{err: err}
		}
		if err := sctx.Draft.MarkDeployed(res); err != nil {
			return deployDoneMsg{err: err}
		}
		return deployDoneMsg{result: res, txs: txs, cost: cost}
	}
}

func (s *Step) setStatus() {
	if !s.ready {
		s.SetStatusMsg("b back")
		return
	}
	s.SetStatusMsg("e export · d deploy · b back")
}

// View renders the summary.
func (s *Step) View() string {
	var b strings.Builder
	b.WriteString(steps.TitleStyle.Render("⬡ REVIEW"))
	b.WriteString("\n")
	if s.ready {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, s.renderOrganization(), " ", s.renderSchemes()))
		b.WriteString("\n")
		b.WriteString(s.renderMachines())
		b.WriteString("\n")
	}
	if len(s.problems) > 0 {
		b.WriteString(steps.ErrorBlock("Problems:\n" + strings.Join(s.problems, "\n")))
		b.WriteString("\n")
	}
	if s.exported != "" {
		b.WriteString(steps.MutedStyle.Render("Exported to " + s.exported))
		b.WriteString("\n")
	}
	if s.summary != nil {
		b.WriteString(s.renderResult())
		b.WriteString("\n")
	}
	if s.errorMsg != "" {
		b.WriteString(steps.ErrorBlock(s.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(steps.StatusStyle.Render(s.StatusMsg()))
	return b.String()
}

func (s *Step) renderOrganization() string {
	rep, tokens := s.members.Totals()
	lines := []string{
		steps.LabelStyle.Render("Organization"),
		s.params.OrgName,
		fmt.Sprintf("Token %s (%s)", s.params.TokenName, s.params.TokenSymbol),
		"",
		steps.LabelStyle.Render(fmt.Sprintf("Founders (%d)", len(s.members))),
	}
	for i, m := range s.members {
		lines = append(lines, fmt.Sprintf("%s… %s REP (%s%%) · %s tokens",
			m.Address.Hex()[:10], m.Reputation.String(), s.members.ReputationShare(i).StringFixed(1), m.Tokens.String()))
	}
	lines = append(lines, steps.MutedStyle.Render(fmt.Sprintf("total %s REP · %s tokens", rep.String(), tokens.String())))
	opts := s.params.Options()
	lines = append(lines, "", steps.MutedStyle.Render(fmt.Sprintf("unregister owner %t · uController %t · DaoCreator %t",
		opts.UnregisterOwner, opts.UseUController, opts.UseDaoCreator)))
	return steps.Box(strings.Join(lines, "\n"))
}

func (s *Step) renderSchemes() string {
	lines := []string{steps.LabelStyle.Render(fmt.Sprintf("Schemes · %s", s.state.Speed))}
	for _, sc := range s.state.Schemes {
		lines = append(lines, fmt.Sprintf("%s · %s", sc.Type.FriendlyName(), sc.PresetLabel()))
	}
	lines = append(lines, "")
	for _, t := range reconcile.AllToggles() {
		lines = append(lines, steps.MutedStyle.Render(fmt.Sprintf("%s: %t", t, s.state.Toggles.Get(t))))
	}
	return steps.Box(strings.Join(lines, "\n"))
}

func (s *Step) renderMachines() string {
	lines := []string{steps.LabelStyle.Render("Voting machines")}
	for i, h := range s.hashes {
		lines = append(lines, fmt.Sprintf("[%d] %s", i, h.Hex()))
	}
	return steps.Box(strings.Join(lines, "\n"))
}

func (s *Step) renderResult() string {
	res := s.summary.result
	lines := []string{
		steps.LabelStyle.Render("Deployed " + res.Name),
		fmt.Sprintf("Avatar     %s", res.Avatar.Hex()),
		fmt.Sprintf("DAOToken   %s", res.DAOToken.Hex()),
		fmt.Sprintf("Reputation %s", res.Reputation.Hex()),
		fmt.Sprintf("Controller %s", res.Controller.Hex()),
		steps.MutedStyle.Render(fmt.Sprintf("Arc %s · %d transaction(s) · %s ETH", res.ArcVersion, s.summary.txs, s.summary.cost.String())),
	}
	return steps.Box(strings.Join(lines, "\n"))
}

type exportedMsg struct {
	path string
}

type deployDoneMsg struct {
	result deploy.Result
	txs    int
	cost   decimal.Decimal
	err    error
}
